package s3fs_blackbox

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/gomega"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	"cortx-e2e/common/e2e_config"
	"cortx-e2e/common/ha"
	"cortx-e2e/common/s3client"
	"cortx-e2e/common/s3fs"
)

type mountedBucket struct {
	bucket string
	dir    string
}

// configureCredentials writes the configured keys to the s3fs credential file
func (c *s3fsConfig) configureCredentials() {
	s3cfg := e2e_config.GetConfig().S3
	if s3fs.PasswdFileHas(c.opts.PasswdFile, s3cfg.AccessKey, s3cfg.SecretKey) {
		return
	}
	logf.Log.Info("Setting access and secret key for s3fs", "file", c.opts.PasswdFile)
	Expect(s3fs.WritePasswdFile(c.opts.PasswdFile, s3cfg.AccessKey, s3cfg.SecretKey)).To(Succeed())
}

// createAndMountBucket creates a bucket and mounts it on a new directory
func (c *s3fsConfig) createAndMountBucket(ctx context.Context, client *s3client.Client, mounter *s3fs.Mounter) mountedBucket {
	mb := mountedBucket{bucket: uniqueName(c.bucketPrefix), dir: uniqueName(c.mountDirPrefix)}
	logf.Log.Info("Creating bucket", "bucket", mb.bucket)
	Expect(client.CreateBucket(ctx, mb.bucket)).To(Succeed())
	Expect(mounter.Mount(mb.bucket, mb.dir)).To(Succeed())
	return mb
}

func (c *s3fsConfig) cleanup(ctx context.Context, client *s3client.Client, mounter *s3fs.Mounter, mounted []mountedBucket) {
	for _, mb := range mounted {
		if ok, _ := mounter.IsMounted(mb.dir); ok {
			_ = mounter.Unmount(mb.dir)
		}
		_ = os.RemoveAll(mb.dir)
		_ = client.DeleteBucket(ctx, mb.bucket, true)
	}
}

func listDir(dir string) []string {
	entries, err := os.ReadDir(dir)
	Expect(err).ToNot(HaveOccurred())
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// bucketHas reports whether a key of bucket equals name or is name/
func bucketHas(ctx context.Context, client *s3client.Client, bucket, name string) bool {
	keys, err := client.ListObjects(ctx, bucket, "")
	Expect(err).ToNot(HaveOccurred())
	for _, key := range keys {
		if key == name || strings.TrimSuffix(key, "/") == name {
			return true
		}
	}
	return false
}

func createFileIn(dir string, sizeMb int) string {
	name := uniqueName("s3fs-file-")
	if sizeMb == 0 {
		Expect(os.WriteFile(filepath.Join(dir, name), nil, 0644)).To(Succeed())
	} else {
		Expect(ha.CreateFile(filepath.Join(dir, name), sizeMb)).To(Succeed())
	}
	return name
}
