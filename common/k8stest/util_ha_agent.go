package k8stest

import (
	"context"
	"time"

	"cortx-e2e/common"
	"cortx-e2e/common/e2e_config"
	"cortx-e2e/common/haagent"
	"cortx-e2e/common/locations"

	"github.com/onsi/gomega"
)

const haAgentDaemonSet = "ha-agent"

// EnsureHAAgent ensure that the ha-agent daemonSet is running, if already deployed
// does nothing, otherwise creates the agent namespace and deploys the daemonSet.
// asserts if creating the namespace fails. This function can be called repeatedly.
func EnsureHAAgent() bool {
	const sleepTime = 5
	const duration = 60
	count := (duration + sleepTime - 1) / sleepTime
	err := EnsureNamespace(common.NSHAAgent)
	gomega.Expect(err).To(gomega.BeNil())

	if DaemonSetReady(haAgentDaemonSet, common.NSHAAgent) {
		return true
	}

	if err = KubeCtlApplyYaml("ha-agent.yaml", locations.GetHAAgentDeployDir()); err != nil {
		return false
	}
	ready := false
	for ix := 0; ix < count && !ready; ix++ {
		time.Sleep(time.Duration(sleepTime) * time.Second)
		ready = DaemonSetReady(haAgentDaemonSet, common.NSHAAgent)
	}
	return ready
}

// RemoveHAAgent deletes the ha-agent daemonSet and its namespace
func RemoveHAAgent() error {
	KubeCtlDeleteYaml("ha-agent.yaml", locations.GetHAAgentDeployDir())
	return RmNamespace(common.NSHAAgent)
}

// Cluster performs node and pod level operations on the storage cluster
// through the k8s API and the ha-agent.
type Cluster struct{}

func masterAddress() (string, error) {
	if master := e2e_config.GetConfig().Platform.MasterNode; master != "" {
		return GetNodeAddress(master)
	}
	return GetMasterNodeAddress()
}

// ExecOnMaster runs a shell command on the master node
func (Cluster) ExecOnMaster(ctx context.Context, cmd string) (string, error) {
	addr, err := masterAddress()
	if err != nil {
		return "", err
	}
	return haagent.Exec(ctx, addr, cmd)
}

// SafeShutdown asks the operating system of host to power off
func (Cluster) SafeShutdown(ctx context.Context, host string) error {
	addr, err := GetNodeAddress(host)
	if err != nil {
		return err
	}
	return haagent.SafeShutdown(ctx, addr)
}

// ExecInClusterPod runs a shell command in a container of the first running
// storage cluster pod whose name starts with podPrefix
func (Cluster) ExecInClusterPod(ctx context.Context, podPrefix, container, cmd string) (string, error) {
	podName, err := GetRunningPodWithPrefix(common.NSCluster(), podPrefix)
	if err != nil {
		return "", err
	}
	stdout, _, err := ExecInPod(ctx, common.NSCluster(), podName, container, []string{"sh", "-c", cmd})
	return stdout, err
}

// ClusterPodsUp is true if any storage cluster pod is running or completed
func (Cluster) ClusterPodsUp(ctx context.Context) (bool, error) {
	return CheckPodStatus(common.NSCluster())
}
