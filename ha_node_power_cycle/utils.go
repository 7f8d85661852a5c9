package ha_node_power_cycle

import (
	"context"

	. "github.com/onsi/gomega"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	"cortx-e2e/common"
	"cortx-e2e/common/ha"
	"cortx-e2e/common/k8stest"
)

// poweredOffNode is powered back on by AfterEach when a test fails midway
var poweredOffNode string

func (c *powerCycleConfig) writeIOs(ctx context.Context, stage string, async bool) *ha.IORun {
	opts := c.io
	opts.Prefix = c.io.Prefix + "-" + stage
	opts.Async = async
	logf.Log.Info("Starting IOs", "stage", stage, "async", async)
	run, err := c.ha.PerformIOsOps(ctx, opts)
	Expect(err).ToNot(HaveOccurred())
	return run
}

func (c *powerCycleConfig) checkIOs(ctx context.Context, run *ha.IORun) {
	_, err := c.ha.PerformIOsOps(ctx, ha.IOOptions{DI: true, Run: run})
	Expect(err).ToNot(HaveOccurred())
}

func (c *powerCycleConfig) powerOff(ctx context.Context) {
	logf.Log.Info("Shutting down node", "host", c.host, "safe", c.safe)
	poweredOffNode = c.host
	ok, err := c.ha.HostSafeUnsafePowerOff(ctx, c.host, c.safe)
	Expect(err).ToNot(HaveOccurred())
	Expect(ok).To(BeTrue(), "%s did not power off", c.host)
}

func (c *powerCycleConfig) powerOn(ctx context.Context) {
	logf.Log.Info("Powering on node", "host", c.host)
	ok, err := c.ha.HostPowerOn(ctx, c.host)
	Expect(err).ToNot(HaveOccurred())
	Expect(ok).To(BeTrue(), "%s did not power on", c.host)
	poweredOffNode = ""
	Expect(k8stest.WaitForNodeReady(c.host, nodeReadySecs)).To(BeTrue(), "k8s node %s is not ready", c.host)
}

func (c *powerCycleConfig) verifyDegraded(ctx context.Context) {
	logf.Log.Info("Check cluster is degraded and the pod is offline", "pod", c.nodeIndex+1)
	Eventually(func() error {
		return c.ha.CheckCSRNStatus(ctx, common.HealthDegraded, common.HealthOffline, c.nodeIndex)
	}, healthTimeout, healthPoll).Should(Succeed())
}

func (c *powerCycleConfig) verifyOnline(ctx context.Context) {
	logf.Log.Info("Check cluster, site, rack and pods are online")
	Eventually(func() error {
		return c.ha.StatusClusterResourceOnline(ctx)
	}, healthTimeout, healthPoll).Should(Succeed())
}

func (c *powerCycleConfig) nodePowerCycleTest(ctx context.Context) {
	before := c.writeIOs(ctx, "before", false)

	c.powerOff(ctx)
	c.verifyDegraded(ctx)

	logf.Log.Info("Reading objects written before the failure")
	Expect(c.ha.PerformIOReadParallel(ctx, before, true)).To(Succeed())
	during := c.writeIOs(ctx, "during", true)
	Expect(c.ha.PerformIOReadParallel(ctx, before, false)).To(Succeed())

	c.powerOn(ctx)
	c.verifyOnline(ctx)

	c.checkIOs(ctx, before)
	c.checkIOs(ctx, during)
}
