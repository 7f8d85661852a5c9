package ha

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	"cortx-e2e/common"
)

func (h *HA) scriptCmd(script string) string {
	return fmt.Sprintf("cd %s; ./%s", h.cfg.ScriptsDir, script)
}

func (h *HA) StartCluster(ctx context.Context) error {
	logf.Log.Info("Start the cluster")
	out, err := h.cluster.ExecOnMaster(ctx, h.scriptCmd(common.ClusterStartScript))
	logf.Log.Info("Cluster start response", "output", out)
	return errors.Wrap(err, "error during starting cluster")
}

func (h *HA) StopCluster(ctx context.Context) error {
	logf.Log.Info("Stop the cluster")
	out, err := h.cluster.ExecOnMaster(ctx, h.scriptCmd(common.ClusterStopScript))
	logf.Log.Info("Cluster stop response", "output", out)
	return errors.Wrap(err, "error during stopping cluster")
}

// RestartCluster stops the cluster, checks it is down, starts it and checks
// it is back up
func (h *HA) RestartCluster(ctx context.Context) error {
	if err := h.StopCluster(ctx); err != nil {
		return err
	}
	if err := sleep(ctx, h.cfg.ClusterDelay); err != nil {
		return err
	}
	logf.Log.Info("Check all pods are offline")
	if err := h.CheckClusterStatus(ctx); err == nil {
		return errors.New("pods are still running")
	}
	if err := h.StartCluster(ctx); err != nil {
		return err
	}
	if err := sleep(ctx, h.cfg.ClusterDelay); err != nil {
		return err
	}
	logf.Log.Info("Check all pods and cluster online")
	if err := h.CheckClusterStatus(ctx); err != nil {
		return errors.Wrap(err, "cluster is not started")
	}
	return nil
}

// CheckPodStatus is true when any storage pod is running or completed
func (h *HA) CheckPodStatus(ctx context.Context) (bool, error) {
	logf.Log.Info("Checking if pods are online")
	return h.cluster.ClusterPodsUp(ctx)
}

// CheckClusterStatus checks the deployment status script and the data
// services reported from the hax container
func (h *HA) CheckClusterStatus(ctx context.Context) error {
	logf.Log.Info("Check the overall cluster status")
	out, err := h.cluster.ExecOnMaster(ctx, h.scriptCmd(common.ClusterStatusScript))
	if err != nil {
		return errors.Wrap(err, "cluster status script failed")
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "FAILED") {
			return errors.Errorf("cluster status reports %q", strings.TrimSpace(line))
		}
	}

	out, err = h.cluster.ExecInClusterPod(ctx, common.ClusterPodPrefix, common.HaxContainerName, common.MotrStatusCmd)
	if err != nil {
		return errors.Wrap(err, "data services status failed")
	}
	return checkServices(out)
}

// checkServices requires every "[state] service" line of hctl status to be started
func checkServices(out string) error {
	services := 0
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "[") {
			continue
		}
		services++
		if !strings.HasPrefix(line, "[started]") {
			return errors.Errorf("service not started: %q", line)
		}
	}
	if services == 0 {
		return errors.New("no data services reported")
	}
	return nil
}
