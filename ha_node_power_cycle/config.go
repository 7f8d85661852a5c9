package ha_node_power_cycle

import (
	"fmt"
	"time"

	. "github.com/onsi/gomega"

	"cortx-e2e/common/e2e_config"
	"cortx-e2e/common/ha"
)

const (
	healthTimeout = 10 * time.Minute
	healthPoll    = 30 * time.Second
	nodeReadySecs = 600
)

type powerCycleConfig struct {
	host      string
	nodeIndex int
	safe      bool
	io        ha.IOOptions
	ha        *ha.HA
}

func generatePowerCycleConfig(testName string, safe bool) *powerCycleConfig {
	cfg := e2e_config.GetConfig()
	idx := cfg.HANodePowerCycle.NodeIndex
	Expect(idx).To(BeNumerically("<", len(cfg.Nodes)), "node index %d out of range", idx)

	h, err := ha.NewFromConfig()
	Expect(err).ToNot(HaveOccurred())
	return &powerCycleConfig{
		host:      cfg.Nodes[idx].Hostname,
		nodeIndex: idx,
		safe:      safe,
		io: ha.IOOptions{
			Prefix:         fmt.Sprintf("%s-%d", testName, time.Now().Unix()),
			NUsers:         cfg.Workload.NUsers,
			NBuckets:       cfg.Workload.NBuckets,
			FilesCount:     cfg.Workload.FilesCount,
			StopUploadTime: time.Duration(cfg.Workload.StopUploadTimeSecs) * time.Second,
		},
		ha: h,
	}
}
