package common

const NSHAAgent = "ha-agent"

// Pods and containers of the storage cluster that the HA helpers talk to.
const ClusterPodPrefix = "cortx-data"
const HaxContainerName = "cortx-hax"

// Scripts shipped with the cluster deployment, relative to the scripts directory
// on the master node.
const ClusterStartScript = "start-cortx-cloud.sh"
const ClusterStopScript = "shutdown-cortx-cloud.sh"
const ClusterStatusScript = "status-cortx-cloud.sh"

// MotrStatusCmd reports the state of the data services from inside the hax container.
const MotrStatusCmd = "hctl status"

// SafeShutdownCmd is executed on a node for a graceful power off.
const SafeShutdownCmd = "shutdown -P now"

// AllUsersGroupURI is the canned grantee for anonymous access.
const AllUsersGroupURI = "http://acs.amazonaws.com/groups/global/AllUsers"

// ConfigDir  Relative path to the configuration directory WRT e2e root.
const ConfigDir = "/configurations"

const DefaultRegion = "us-east-1"

// HA agent REST port on every node.
const HAAgentPort = "10012"
