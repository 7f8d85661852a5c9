package main

import (
	"log"
	"os"
	"os/exec"
	"time"

	"cortx-e2e/common"
)

const SYSRQ_TRIGGER_FILE = "/host/proc/sysrq-trigger"

// Setup lets the e2e host reach the REST port past the node firewall
func Setup() error {
	var cmd *exec.Cmd

	e2eHostAddr := os.Getenv("E2E_HOST_ADDR")
	port := os.Getenv("REST_PORT")
	if e2eHostAddr != "" {
		cmd = exec.Command(
			"iptables", "-t", "mangle", "-i", "eth0", "-s", e2eHostAddr,
			"-I", "PREROUTING", "-p", "tcp", "--dport", port, "-j", "ACCEPT",
			"-m", "comment", "--comment", "cortx-e2e-test")
	} else {
		cmd = exec.Command("iptables", "-t", "mangle", "-i", "eth0",
			"-I", "PREROUTING", "-p", "tcp", "--dport", port, "-j", "ACCEPT",
			"-m", "comment", "--comment", "cortx-e2e-test")
	}
	_, err := cmd.Output()
	return err
}

// hostCommand wraps a shell command line so that it runs in the host
// namespaces when the agent is deployed with HOST_NSENTER set.
func hostCommand(cmdline string) []string {
	if os.Getenv("HOST_NSENTER") != "" {
		return []string{"nsenter", "--target", "1", "--mount", "--uts", "--ipc", "--net", "--pid", "--", "sh", "-c", cmdline}
	}
	return []string{"sh", "-c", cmdline}
}

// RunOnHost runs a command line and returns its combined output
func RunOnHost(cmdline string) ([]byte, error) {
	argv := hostCommand(cmdline)
	log.Printf("%v\n", argv)
	return exec.Command(argv[0], argv[1:]...).CombinedOutput()
}

// UngracefulReboot crashes and reboots the host machine
func UngracefulReboot() error {
	log.Printf("Rebooting node ungracefully")
	time.Sleep(2 * time.Second)
	return os.WriteFile(SYSRQ_TRIGGER_FILE, []byte("c"), 0644)
}

// SafeShutdown powers off the host through the init system
func SafeShutdown() error {
	log.Printf("Shutting down node")
	time.Sleep(2 * time.Second)
	out, err := RunOnHost(common.SafeShutdownCmd)
	if err != nil {
		log.Printf("shutdown: %s", out)
	}
	return err
}
