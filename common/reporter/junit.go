package reporter

import (
	"os"
	"path/filepath"
	"strings"

	"cortx-e2e/common/e2e_config"

	. "github.com/onsi/ginkgo"
	"github.com/onsi/ginkgo/reporters"
)

// reportPath names the junit file of a suite, reports of VM and HW runs are kept apart
func reportPath(dir, setupType, name string) string {
	group := "e2e." + strings.ToLower(setupType)
	return filepath.Join(dir, group+"."+name+"-junit.xml")
}

// GetReporters returns the junit reporter for suite name, or none when no
// reports directory is configured
func GetReporters(name string) []Reporter {
	cfg := e2e_config.GetConfig()

	if cfg.ReportsDir == "" {
		return []Reporter{}
	}
	if err := os.MkdirAll(cfg.ReportsDir, 0755); err != nil {
		return []Reporter{}
	}
	junitReporter := reporters.NewJUnitReporter(reportPath(cfg.ReportsDir, cfg.Platform.SetupType, name))
	return []Reporter{junitReporter}
}
