package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/gorilla/mux"
)

func homePage(w http.ResponseWriter, r *http.Request) {
	fmt.Fprint(w, "Welcome home!\n")
}

type CmdList struct {
	Cmd string `json:"cmd"`
}

const (
	InternalServerErrorCode      = 500
	UnprocessableEntityErrorCode = 422
)

// agent holds the host actions so that handlers can be exercised without a host
type agent struct {
	run      func(cmdline string) ([]byte, error)
	reboot   func() error
	shutdown func() error
}

func main() {
	if err := Setup(); err != nil {
		log.Fatal(err)
	}
	a := &agent{run: RunOnHost, reboot: UngracefulReboot, shutdown: SafeShutdown}
	podIP := os.Getenv("MY_POD_IP")
	restPort := os.Getenv("REST_PORT")
	log.Fatal(http.ListenAndServe(podIP+":"+restPort, a.router()))
}

func (a *agent) router() *mux.Router {
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/", homePage)
	router.HandleFunc("/ungracefulReboot", a.ungracefulReboot).Methods("POST")
	router.HandleFunc("/safeShutdown", a.safeShutdown).Methods("POST")
	router.HandleFunc("/exec", a.execCmd).Methods("POST")
	return router
}

func (a *agent) ungracefulReboot(w http.ResponseWriter, r *http.Request) {
	go func() {
		if err := a.reboot(); err != nil {
			log.Print(err)
		}
	}()
	fmt.Fprint(w, "Rebooting\n")
}

func (a *agent) safeShutdown(w http.ResponseWriter, r *http.Request) {
	// respond before the host goes away
	go func() {
		if err := a.shutdown(); err != nil {
			log.Print(err)
		}
	}()
	fmt.Fprint(w, "Shutting down\n")
}

func (a *agent) execCmd(w http.ResponseWriter, r *http.Request) {
	var cmdline CmdList
	d := json.NewDecoder(r.Body)
	if err := d.Decode(&cmdline); err != nil {
		w.WriteHeader(UnprocessableEntityErrorCode)
		fmt.Fprint(w, err.Error())
		return
	}
	if len(strings.TrimSpace(cmdline.Cmd)) == 0 {
		w.WriteHeader(UnprocessableEntityErrorCode)
		fmt.Fprint(w, "no command passed")
		return
	}
	output, err := a.run(cmdline.Cmd)
	if err != nil {
		w.WriteHeader(InternalServerErrorCode)
		fmt.Fprintf(w, "%s\n%s", err.Error(), output)
		return
	}
	fmt.Fprint(w, string(output))
}
