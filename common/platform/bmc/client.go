package bmc

import (
	"strings"

	"cortx-e2e/common/platform/types"

	"github.com/pkg/errors"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
)

// AddrResolver maps a host name to its BMC address
type AddrResolver func(host string) string

type bmcClient struct {
	user     string
	password string
	resolve  AddrResolver
	run      types.CommandRunner
}

func New(user, password string, resolve AddrResolver) types.Platform {
	return NewWithRunner(user, password, resolve, types.ExecRunner)
}

func NewWithRunner(user, password string, resolve AddrResolver, run types.CommandRunner) types.Platform {
	return &bmcClient{user: user, password: password, resolve: resolve, run: run}
}

func (b *bmcClient) chassisPower(node, action string) (string, error) {
	addr := b.resolve(node)
	if addr == "" {
		return "", errors.Errorf("no BMC address configured for %s", node)
	}
	out, err := b.run("ipmitool", "-I", "lanplus", "-H", addr, "-U", b.user, "-P", b.password,
		"chassis", "power", action)
	if err != nil {
		return string(out), errors.Wrapf(err, "ipmitool chassis power %s on %s: %s", action, addr, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

func (b *bmcClient) PowerOnNode(node string) error {
	logf.Log.Info("Power on", "node", node)
	_, err := b.chassisPower(node, "on")
	return err
}

func (b *bmcClient) PowerOffNode(node string) error {
	logf.Log.Info("Power off", "node", node)
	_, err := b.chassisPower(node, "off")
	return err
}

func (b *bmcClient) GetNodeStatus(node string) (string, error) {
	out, err := b.chassisPower(node, "status")
	if err != nil {
		return "", err
	}
	return ParseChassisStatus(out), nil
}

// ParseChassisStatus maps "Chassis Power is on|off" to a power state
func ParseChassisStatus(output string) string {
	out := strings.ToLower(strings.TrimSpace(output))
	switch {
	case strings.HasSuffix(out, " on") || out == "on":
		return types.PowerStateOn
	case strings.HasSuffix(out, " off") || out == "off":
		return types.PowerStateOff
	case strings.Contains(out, "off"):
		return types.PowerStateOff
	case strings.Contains(out, "on"):
		return types.PowerStateOn
	}
	return out
}
