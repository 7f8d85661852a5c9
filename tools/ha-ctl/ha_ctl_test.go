package main

import (
	"context"
	"errors"
	"testing"
	"time"

	flags "github.com/jessevdk/go-flags"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	log "github.com/sirupsen/logrus"

	"cortx-e2e/common"
	"cortx-e2e/common/ha"
	"cortx-e2e/common/platform/types"
)

type fakePlatform struct {
	state   map[string]string
	powerOn error
}

func (p *fakePlatform) PowerOnNode(node string) error {
	if p.powerOn != nil {
		return p.powerOn
	}
	p.state[node] = types.PowerStateOn
	return nil
}

func (p *fakePlatform) PowerOffNode(node string) error {
	p.state[node] = types.PowerStateOff
	return nil
}

func (p *fakePlatform) GetNodeStatus(node string) (string, error) {
	return p.state[node], nil
}

type fakeShutdown struct {
	ha.ClusterOps
	platform *fakePlatform
}

func (c fakeShutdown) SafeShutdown(_ context.Context, host string) error {
	return c.platform.PowerOffNode(host)
}

func TestHACtl(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "ha-ctl Suite")
}

var _ = Describe("ha-ctl", func() {
	var (
		plat     *fakePlatform
		original func() (*ha.HA, error)
	)

	BeforeEach(func() {
		opts = options{}
		plat = &fakePlatform{state: map[string]string{"node-1": types.PowerStateOff}}
		original = newHA
		newHA = func() (*ha.HA, error) {
			return ha.New(ha.Config{
				PowerOnTimeout:  time.Second,
				PowerOffTimeout: time.Second,
				PollInterval:    time.Millisecond,
			}, ha.Deps{
				Platform: plat,
				Ping: func(host string) bool {
					return plat.state[host] == types.PowerStateOn
				},
				Cluster: fakeShutdown{platform: plat},
			}), nil
		}
	})

	AfterEach(func() {
		newHA = original
	})

	parse := func(args ...string) error {
		parser, err := newParser()
		Expect(err).ToNot(HaveOccurred())
		parser.Options = flags.HelpFlag | flags.PassDoubleDash
		_, err = parser.ParseArgs(args)
		return err
	}

	It("powers a node on and off", func() {
		Expect(parse("power-on", "--host", "node-1")).To(Succeed())
		Expect(plat.state["node-1"]).To(Equal(types.PowerStateOn))

		Expect(parse("power-off", "--host", "node-1")).To(Succeed())
		Expect(plat.state["node-1"]).To(Equal(types.PowerStateOff))
	})

	It("shuts a node down through the cluster with --safe", func() {
		plat.state["node-1"] = types.PowerStateOn
		Expect(parse("power-off", "--host", "node-1", "--safe")).To(Succeed())
		Expect(plat.state["node-1"]).To(Equal(types.PowerStateOff))
	})

	It("reports power failures", func() {
		plat.powerOn = errors.New("bmc unreachable")
		err := parse("power-on", "--host", "node-1")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("bmc unreachable"))
	})

	It("requires a host", func() {
		err := parse("power-on")
		Expect(err).To(HaveOccurred())
		fe, ok := err.(*flags.Error)
		Expect(ok).To(BeTrue())
		Expect(fe.Type).To(Equal(flags.ErrRequired))
	})

	It("applies the logger options before running a command", func() {
		Expect(parse("--log-level", "debug", "--log-encoding", "json", "power-on", "--host", "node-1")).To(Succeed())
		Expect(log.GetLevel()).To(Equal(log.DebugLevel))
		_, isJSON := log.StandardLogger().Formatter.(*log.JSONFormatter)
		Expect(isJSON).To(BeTrue())
		Expect(opts.Timeout).To(Equal(30 * time.Minute))
	})

	It("rejects unknown log levels", func() {
		err := parse("--log-level", "verbose", "power-on", "--host", "node-1")
		Expect(err).To(HaveOccurred())
	})

	It("builds the s3bench account from the keys", func() {
		cmd := &s3benchCommand{AccessKey: "ak", SecretKey: "sk"}
		Expect(cmd.account()).To(Equal(common.S3Account{AccessKey: "ak", SecretKey: "sk"}))
	})
})
