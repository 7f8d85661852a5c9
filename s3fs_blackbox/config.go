package s3fs_blackbox

import (
	"fmt"
	"time"

	"cortx-e2e/common/e2e_config"
	"cortx-e2e/common/s3fs"
)

type s3fsConfig struct {
	opts           s3fs.Options
	bucketPrefix   string
	mountDirPrefix string
	largeFileMb    int
}

func generateS3fsConfig() *s3fsConfig {
	cfg := e2e_config.GetConfig().S3fs
	return &s3fsConfig{
		opts:           s3fs.OptionsFromConfig(),
		bucketPrefix:   cfg.BucketPrefix,
		mountDirPrefix: cfg.MountDirPrefix,
		largeFileMb:    cfg.LargeFileMb,
	}
}

func uniqueName(prefix string) string {
	return fmt.Sprintf("%s%d", prefix, time.Now().UnixNano())
}
