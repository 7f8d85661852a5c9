package s3fs_blackbox

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"cortx-e2e/common/k8stest"
	"cortx-e2e/common/s3client"
	"cortx-e2e/common/s3fs"
)

func TestS3fsBlackbox(t *testing.T) {
	// Initialise test and set class and file names for reports
	k8stest.InitTesting(t, "S3fs Blackbox Tests", "s3fs_blackbox")
}

var _ = BeforeSuite(func(done Done) {
	k8stest.SetupTestEnv()

	close(done)
}, 60)

var _ = AfterSuite(func() {
	k8stest.TeardownTestEnv()
})

var _ = Describe("s3fs client", func() {
	var (
		ctx     = context.Background()
		c       *s3fsConfig
		client  *s3client.Client
		mounter *s3fs.Mounter
		mounted []mountedBucket
	)

	mount := func() mountedBucket {
		mb := c.createAndMountBucket(ctx, client, mounter)
		mounted = append(mounted, mb)
		return mb
	}

	BeforeEach(func() {
		Expect(k8stest.BeforeEachCheck()).To(Succeed())
		var err error
		client, err = s3client.Default(ctx)
		Expect(err).ToNot(HaveOccurred())
		c = generateS3fsConfig()
		c.configureCredentials()
		mounter = s3fs.NewMounter(c.opts)
		mounted = nil
	})

	AfterEach(func() {
		c.cleanup(ctx, client, mounter, mounted)
		Expect(k8stest.AfterEachCheck()).To(Succeed())
	})

	It("mounts a bucket", func() {
		mb := mount()
		Expect(mounter.IsMounted(mb.dir)).To(BeTrue())
	})

	It("unmounts a bucket directory", func() {
		mb := mount()
		Expect(mounter.Unmount(mb.dir)).To(Succeed())
		Expect(mounter.IsMounted(mb.dir)).To(BeFalse())
	})

	It("lists objects on the mount directory", func() {
		mb := mount()
		name := createFileIn(mb.dir, 0)
		Expect(listDir(mb.dir)).To(ContainElement(name))
		Expect(bucketHas(ctx, client, mb.bucket, name)).To(BeTrue())
	})

	It("keeps objects in the bucket after unmount", func() {
		mb := mount()
		name := createFileIn(mb.dir, 0)
		Expect(mounter.Unmount(mb.dir)).To(Succeed())
		Expect(listDir(mb.dir)).ToNot(ContainElement(name))
		Expect(bucketHas(ctx, client, mb.bucket, name)).To(BeTrue())
	})

	It("deletes the object when the file is removed", func() {
		mb := mount()
		name := createFileIn(mb.dir, 0)
		Expect(listDir(mb.dir)).To(ContainElement(name))
		Expect(bucketHas(ctx, client, mb.bucket, name)).To(BeTrue())

		Expect(os.Remove(filepath.Join(mb.dir, name))).To(Succeed())
		Expect(bucketHas(ctx, client, mb.bucket, name)).To(BeFalse())
	})

	It("creates a sub directory", func() {
		mb := mount()
		name := uniqueName("s3fs-dir-")
		Expect(os.Mkdir(filepath.Join(mb.dir, name), 0755)).To(Succeed())
		Expect(listDir(mb.dir)).To(ContainElement(name))
		Expect(bucketHas(ctx, client, mb.bucket, name)).To(BeTrue())
	})

	It("uploads a large file", func() {
		mb := mount()
		name := createFileIn(mb.dir, c.largeFileMb)
		Expect(listDir(mb.dir)).To(ContainElement(name))
		Expect(bucketHas(ctx, client, mb.bucket, name)).To(BeTrue())
	})

	It("uploads a file", func() {
		mb := mount()
		name := createFileIn(mb.dir, 1)
		Expect(listDir(mb.dir)).To(ContainElement(name))
		Expect(bucketHas(ctx, client, mb.bucket, name)).To(BeTrue())
	})
})
