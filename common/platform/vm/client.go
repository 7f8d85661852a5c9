package vm

import (
	"bufio"
	"strings"

	"cortx-e2e/common/platform/types"

	"github.com/pkg/errors"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
)

type vmClient struct {
	tool     string
	user     string
	password string
	run      types.CommandRunner
}

func New(tool, user, password string) types.Platform {
	return NewWithRunner(tool, user, password, types.ExecRunner)
}

func NewWithRunner(tool, user, password string, run types.CommandRunner) types.Platform {
	return &vmClient{tool: tool, user: user, password: password, run: run}
}

// VMName is the first DNS label of the host name
func VMName(host string) string {
	return strings.Split(host, ".")[0]
}

func (v *vmClient) action(action, node string) ([]byte, error) {
	out, err := v.run(v.tool, "-u", v.user, "-p", v.password, "-a", action, "-v", VMName(node))
	if err != nil {
		return out, errors.Wrapf(err, "%s %s failed: %s", action, VMName(node), strings.TrimSpace(string(out)))
	}
	return out, nil
}

func (v *vmClient) PowerOffNode(node string) error {
	logf.Log.Info("Power off", "node", node)
	_, err := v.action("power_off", node)
	return err
}

func (v *vmClient) PowerOnNode(node string) error {
	logf.Log.Info("Power on", "node", node)
	_, err := v.action("power_on", node)
	return err
}

func (v *vmClient) GetNodeStatus(node string) (string, error) {
	out, err := v.action("info", node)
	if err != nil {
		return "", errors.Wrapf(err, "unable to get VM power status for %s", VMName(node))
	}
	state := ParsePowerState(string(out))
	logf.Log.V(1).Info("Power state", "node", node, "state", state)
	switch state {
	case "up":
		return types.PowerStateOn, nil
	case "down":
		return types.PowerStateOff, nil
	}
	return state, nil
}

// ParsePowerState returns the value of the last power_state entry in the VM
// tool info output, stripped of quotes, commas and blanks.
func ParsePowerState(output string) string {
	state := ""
	// the tool may print escaped newlines inside a single JSON line
	output = strings.ReplaceAll(output, `\n`, "\n")
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, "power_state") {
			continue
		}
		fields := strings.SplitN(line, ":", 2)
		if len(fields) != 2 {
			continue
		}
		state = strings.Trim(fields[1], `," `)
	}
	return state
}
