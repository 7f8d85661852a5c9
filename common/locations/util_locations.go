package locations

// For now the relative paths are hardcoded, there may be a case to make this
// more generic and data driven.

import (
	"os"
	"path"

	"cortx-e2e/common/e2e_config"

	. "github.com/onsi/gomega"
)

func locationExists(path string) string {
	_, err := os.Stat(path)
	Expect(err).To(BeNil(), "%s", err)
	return path
}

// GetHAAgentDeployDir is the directory holding the ha-agent daemonset yaml
func GetHAAgentDeployDir() string {
	return locationExists(path.Clean(e2e_config.GetConfig().E2eRootDir + "/tools/ha-agent/deploy"))
}
