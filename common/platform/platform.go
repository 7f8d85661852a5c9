package platform

import (
	"os/exec"

	"cortx-e2e/common"
	"cortx-e2e/common/e2e_config"
	bmcClient "cortx-e2e/common/platform/bmc"
	types "cortx-e2e/common/platform/types"
	vmClient "cortx-e2e/common/platform/vm"
)

func Create() types.Platform {
	cfg := e2e_config.GetConfig()
	switch common.SetupType(cfg.Platform.SetupType) {
	case common.SetupVM:
		return vmClient.New(cfg.HA.Vm.Tool, cfg.HA.Vm.User, cfg.HA.Vm.Password)
	case common.SetupHW:
		return bmcClient.New(cfg.HA.Bmc.User, cfg.HA.Bmc.Password, cfg.BmcAddress)
	}
	return nil
}

// Ping sends one ICMP echo to host and reports whether it answered
func Ping(host string) bool {
	return exec.Command("ping", "-c", "1", "-W", "3", host).Run() == nil
}
