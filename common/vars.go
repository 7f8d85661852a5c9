package common

import "cortx-e2e/common/e2e_config"

// NSCluster return the name of the namespace in which the storage cluster is installed
func NSCluster() string {
	return e2e_config.GetConfig().Platform.Namespace
}
