package main

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func TestHAAgent(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "HA Agent Suite")
}

var _ = Describe("ha-agent routes", func() {
	var (
		a        *agent
		ran      []string
		runErr   error
		shutdown chan struct{}
	)

	BeforeEach(func() {
		ran = nil
		runErr = nil
		shutdown = make(chan struct{}, 1)
		a = &agent{
			run: func(cmdline string) ([]byte, error) {
				ran = append(ran, cmdline)
				return []byte("output of " + cmdline), runErr
			},
			reboot: func() error { return nil },
			shutdown: func() error {
				shutdown <- struct{}{}
				return nil
			},
		}
	})

	serve := func(method, path, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		a.router().ServeHTTP(rec, req)
		return rec
	}

	It("should answer liveness probes", func() {
		rec := serve(http.MethodGet, "/", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
	})

	It("should run commands and return their output", func() {
		rec := serve(http.MethodPost, "/exec", `{"cmd": "hctl status"}`)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(Equal("output of hctl status"))
		Expect(ran).To(Equal([]string{"hctl status"}))
	})

	It("should reject empty commands", func() {
		rec := serve(http.MethodPost, "/exec", `{"cmd": "  "}`)
		Expect(rec.Code).To(Equal(UnprocessableEntityErrorCode))
		Expect(ran).To(BeEmpty())
	})

	It("should report failed commands", func() {
		runErr = fmt.Errorf("exit status 2")
		rec := serve(http.MethodPost, "/exec", `{"cmd": "false"}`)
		Expect(rec.Code).To(Equal(InternalServerErrorCode))
		Expect(rec.Body.String()).To(ContainSubstring("exit status 2"))
	})

	It("should shut down in the background", func() {
		rec := serve(http.MethodPost, "/safeShutdown", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Eventually(shutdown).Should(Receive())
	})

	It("should only accept POST for host actions", func() {
		rec := serve(http.MethodGet, "/ungracefulReboot", "")
		Expect(rec.Code).To(Equal(http.StatusMethodNotAllowed))
	})

	It("should wrap commands with nsenter when asked", func() {
		Expect(hostCommand("ls")).To(Equal([]string{"sh", "-c", "ls"}))
	})
})
