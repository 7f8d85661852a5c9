package ha_cluster_restart

import (
	"bytes"
	"context"
	"math/rand"
	"os"

	. "github.com/onsi/gomega"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	"cortx-e2e/common"
	"cortx-e2e/common/ha"
	"cortx-e2e/common/s3client"
)

func (c *restartConfig) restartCluster(ctx context.Context) {
	Expect(c.ha.RestartCluster(ctx)).To(Succeed())
	logf.Log.Info("Check cluster, site, rack and pods are online")
	Eventually(func() error {
		return c.ha.StatusClusterResourceOnline(ctx)
	}, healthTimeout, healthPoll).Should(Succeed())
}

func (c *restartConfig) writeIOs(ctx context.Context) *ha.IORun {
	run, err := c.ha.PerformIOsOps(ctx, c.io)
	Expect(err).ToNot(HaveOccurred())
	return run
}

func (c *restartConfig) checkIOs(ctx context.Context, run *ha.IORun) {
	_, err := c.ha.PerformIOsOps(ctx, ha.IOOptions{DI: true, Run: run})
	Expect(err).ToNot(HaveOccurred())
}

func (c *restartConfig) createMPUAccount(ctx context.Context) common.S3Account {
	accounts, err := c.users.CreateAccountUsers(ctx, "ha-mpu", 1)
	Expect(err).ToNot(HaveOccurred())
	Expect(accounts).To(HaveLen(1))
	return accounts[0]
}

// firstHalf and secondHalf split the part numbers of the upload
func (c *restartConfig) firstHalf() []int32 {
	var parts []int32
	for n := int32(1); n <= int32(c.mpuTotalParts/2); n++ {
		parts = append(parts, n)
	}
	return parts
}

func (c *restartConfig) secondHalf() []int32 {
	var parts []int32
	for n := int32(c.mpuTotalParts/2) + 1; n <= int32(c.mpuTotalParts); n++ {
		parts = append(parts, n)
	}
	return parts
}

// randomParts is every part number of the upload in random order
func (c *restartConfig) randomParts() []int32 {
	parts := make([]int32, 0, c.mpuTotalParts)
	for _, i := range rand.Perm(c.mpuTotalParts) {
		parts = append(parts, int32(i+1))
	}
	return parts
}

// verifyObject downloads the completed object and compares it to the uploaded file
func (c *restartConfig) verifyObject(ctx context.Context, account common.S3Account) {
	client, err := s3client.ForAccount(ctx, account)
	Expect(err).ToNot(HaveOccurred())
	got, err := client.GetObjectBytes(ctx, c.mpuBucket, c.mpuObject)
	Expect(err).ToNot(HaveOccurred())
	want, err := os.ReadFile(c.mpuFilePath)
	Expect(err).ToNot(HaveOccurred())
	Expect(bytes.Equal(got, want)).To(BeTrue(), "object %s/%s differs from the uploaded file", c.mpuBucket, c.mpuObject)
}

func (c *restartConfig) cleanup(ctx context.Context, accounts []common.S3Account) {
	_ = os.Remove(c.mpuFilePath)
	Expect(c.ha.DeleteS3AccountBucketsObjects(ctx, accounts)).To(Succeed())
}
