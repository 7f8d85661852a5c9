package types

import (
	"os/exec"
)

const (
	PowerStateOn  = "on"
	PowerStateOff = "off"
)

type Platform interface {
	PowerOnNode(node string) error
	PowerOffNode(node string) error
	GetNodeStatus(node string) (string, error)
}

// CommandRunner runs an external command and returns its combined output.
type CommandRunner func(name string, args ...string) ([]byte, error)

func ExecRunner(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).CombinedOutput()
}
