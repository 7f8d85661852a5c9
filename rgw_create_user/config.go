package rgw_create_user

import (
	"fmt"
	"time"

	"cortx-e2e/common/e2e_config"
)

const specialCharsUID = "#user##@%@%%@#%^@#%12313223new"

type userConfig struct {
	userNamePrefix string
	emailDomain    string
	tenant         string
	maxBuckets     int
}

func generateUserConfig() *userConfig {
	cfg := e2e_config.GetConfig().RgwCreateUser
	return &userConfig{
		userNamePrefix: cfg.UserNamePrefix,
		emailDomain:    cfg.EmailDomain,
		tenant:         cfg.Tenant,
		maxBuckets:     cfg.MaxBuckets,
	}
}

func (c *userConfig) newUserName() string {
	return fmt.Sprintf("%s%d", c.userNamePrefix, time.Now().UnixNano())
}

func (c *userConfig) email(user string) string {
	return user + "@" + c.emailDomain
}
