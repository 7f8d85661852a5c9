package workload

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"

	"cortx-e2e/common"
)

func TestWorkload(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Workload Suite")
}

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func (s *memStore) PutObjectBytes(_ context.Context, bucket, key string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[bucket+"/"+key] = append([]byte{}, data...)
	return "etag", nil
}

func (s *memStore) GetObjectBytes(_ context.Context, bucket, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[bucket+"/"+key]
	if !ok {
		return nil, errors.Errorf("NoSuchKey %s/%s", bucket, key)
	}
	return data, nil
}

func (s *memStore) DeleteObject(_ context.Context, bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, bucket+"/"+key)
	return nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

func (s *memStore) corruptOne() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range s.objects {
		s.objects[k] = append(v, 'x')
		return
	}
}

var _ = Describe("DataCheckManager", func() {
	var (
		store *memStore
		sets  []BucketSet
		ctx   = context.Background()
	)

	factory := func(context.Context, common.S3Account) (ObjectStore, error) {
		return store, nil
	}

	BeforeEach(func() {
		store = newMemStore()
		sets = []BucketSet{
			{Account: common.S3Account{UserName: "u1"}, Buckets: []string{"b1", "b2"}},
			{Account: common.S3Account{UserName: "u2"}, Buckets: []string{"b3"}},
		}
	})

	It("rejects an invalid size", func() {
		_, err := NewDataCheckManager(factory, sets, "lots")
		Expect(err).To(HaveOccurred())
	})

	It("writes, verifies and deletes objects", func() {
		m, err := NewDataCheckManager(factory, sets, "4KiB")
		Expect(err).ToNot(HaveOccurred())

		Expect(m.StartIO(ctx, 4, "io")).To(Succeed())
		Expect(m.Objects()).To(Equal(12))
		Expect(store.count()).To(Equal(12))

		Expect(m.Verify(ctx)).To(Succeed())
		Expect(store.count()).To(Equal(12))

		Expect(m.StopIO(ctx, true)).To(Succeed())
		Expect(m.Objects()).To(BeZero())
		Expect(store.count()).To(BeZero())
	})

	It("detects corrupted objects", func() {
		m, err := NewDataCheckManager(factory, sets, "1KiB")
		Expect(err).ToNot(HaveOccurred())
		Expect(m.StartIO(ctx, 2, "io")).To(Succeed())

		store.corruptOne()
		err = m.VerifyAsync(ctx).Wait()
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("data integrity check failed for 1 objects"))
	})

	It("stops background IO", func() {
		m, err := NewDataCheckManager(factory, sets, "1KiB")
		Expect(err).ToNot(HaveOccurred())

		m.StartIOAsync(ctx, 0, "async")
		Eventually(m.Objects, 5*time.Second, 10*time.Millisecond).Should(BeNumerically(">", 3))
		m.Stop()
		Expect(m.Wait()).To(Succeed())

		written := m.Objects()
		Consistently(m.Objects, 100*time.Millisecond, 10*time.Millisecond).Should(Equal(written))
		Expect(m.StopIO(ctx, true)).To(Succeed())
		Expect(store.count()).To(BeZero())
	})

	It("reports write failures", func() {
		failing := func(context.Context, common.S3Account) (ObjectStore, error) {
			return nil, errors.New("no credentials")
		}
		m, err := NewDataCheckManager(failing, sets, "1KiB")
		Expect(err).ToNot(HaveOccurred())
		Expect(m.StartIO(ctx, 1, "io")).ToNot(Succeed())
	})
})

var _ = Describe("s3bench", func() {
	It("extends the size ladder on HW", func() {
		Expect(Sizes(false)).To(HaveLen(17))
		hw := Sizes(true)
		Expect(hw).To(HaveLen(22))
		Expect(hw[17:]).To(Equal([]string{"1GB", "2GB", "3GB", "4GB", "5GB"}))
		Expect(SizeLadder).To(HaveLen(17))
	})

	It("finds error lines in logs", func() {
		log := []byte("Results Summary for Write Operation(s)\nErrors Count:  0\nok\n")
		Expect(LogErrors(log)).To(BeEmpty())

		log = []byte("Errors Count:  3\nupload failed with error AccessDenied\nall good\n")
		Expect(LogErrors(log)).To(Equal([]string{"Errors Count:  3", "upload failed with error AccessDenied"}))
	})

	It("runs and logs a pass", func() {
		dir, err := os.MkdirTemp("", "s3bench")
		Expect(err).ToNot(HaveOccurred())
		defer os.RemoveAll(dir)

		var got []string
		runner := func(name string, args ...string) ([]byte, error) {
			got = append([]string{name}, args...)
			return []byte("Errors Count:  0\n"), nil
		}
		b := NewS3BenchWithRunner("s3bench", "http://s3", "us-east-1", dir, runner)
		b.lookPath = func(p string) (string, error) { return p, nil }
		Expect(b.Setup()).To(Succeed())

		account := common.S3Account{AccessKey: "ak", SecretKey: "sk"}
		logPath, err := b.Run(account, "t1", S3BenchOptions{
			Bucket: "bucket-t1", ObjectPrefix: "ha_t1", ObjectSize: "1KB", Clients: 2, Samples: 4, SkipCleanup: true,
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(logPath).To(Equal(filepath.Join(dir, "log_t1_1KB.log")))
		Expect(CheckLogFile(logPath)).To(Succeed())

		cmd := strings.Join(got, " ")
		Expect(cmd).To(ContainSubstring("-bucket bucket-t1"))
		Expect(cmd).To(ContainSubstring("-objectSize 1KB"))
		Expect(cmd).To(HaveSuffix("-skipCleanup"))
	})

	It("fails setup without the binary", func() {
		b := NewS3Bench("/nonexistent/s3bench", "http://s3", "us-east-1", os.TempDir())
		Expect(b.Setup()).ToNot(Succeed())
	})
})
