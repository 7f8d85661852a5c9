package s3_all_users_object_acl

import (
	"fmt"
	"time"

	"cortx-e2e/common/e2e_config"
)

type aclConfig struct {
	bucketName string
	objName    string
	filePath   string
	mbCount    int
}

func generateAclConfig() *aclConfig {
	cfg := e2e_config.GetConfig().AllUsersObjAcl
	suffix := fmt.Sprint(time.Now().UnixNano())
	return &aclConfig{
		bucketName: cfg.BucketPrefix + suffix,
		objName:    cfg.ObjPrefix + suffix,
		filePath:   cfg.FilePath,
		mbCount:    cfg.MbCount,
	}
}
