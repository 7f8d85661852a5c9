package ha_cluster_restart

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/gomega"

	"cortx-e2e/common/e2e_config"
	"cortx-e2e/common/ha"
	"cortx-e2e/common/rgwadmin"
)

const (
	healthTimeout = 15 * time.Minute
	healthPoll    = 30 * time.Second
)

type restartConfig struct {
	io            ha.IOOptions
	mpuBucket     string
	mpuObject     string
	mpuFilePath   string
	mpuFileSizeMb int
	mpuTotalParts int
	ha            *ha.HA
	users         *rgwadmin.Client
}

func generateRestartConfig(testName string) *restartConfig {
	cfg := e2e_config.GetConfig()
	h, err := ha.NewFromConfig()
	Expect(err).ToNot(HaveOccurred())
	users, err := rgwadmin.NewFromConfig()
	Expect(err).ToNot(HaveOccurred())

	suffix := fmt.Sprint(time.Now().UnixNano())
	return &restartConfig{
		io: ha.IOOptions{
			Prefix:     testName + "-" + suffix,
			NUsers:     cfg.Workload.NUsers,
			NBuckets:   cfg.Workload.NBuckets,
			FilesCount: cfg.Workload.FilesCount,
		},
		mpuBucket:     "mpu-bkt-" + suffix,
		mpuObject:     "mpu-obj-" + suffix,
		mpuFilePath:   filepath.Join(os.TempDir(), "mpu-"+suffix),
		mpuFileSizeMb: cfg.HAClusterRestart.MpuFileSizeMb,
		mpuTotalParts: cfg.HAClusterRestart.MpuTotalParts,
		ha:            h,
		users:         users,
	}
}

func workloadClients() int {
	return e2e_config.GetConfig().Workload.S3BenchClients
}

func workloadSamples() int {
	return e2e_config.GetConfig().Workload.S3BenchSamples
}
