package ha

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/pkg/errors"

	"cortx-e2e/common"
	"cortx-e2e/common/platform/types"
	"cortx-e2e/common/workload"
)

type fakePlatform struct {
	mu        sync.Mutex
	state     map[string]string
	statusErr error
	powerErr  error
}

func (p *fakePlatform) set(host, state string) error {
	if p.powerErr != nil {
		return p.powerErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state[host] = state
	return nil
}

func (p *fakePlatform) PowerOnNode(host string) error  { return p.set(host, types.PowerStateOn) }
func (p *fakePlatform) PowerOffNode(host string) error { return p.set(host, types.PowerStateOff) }

func (p *fakePlatform) GetNodeStatus(host string) (string, error) {
	if p.statusErr != nil {
		return "", p.statusErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state[host], nil
}

// ping answers while the host is powered on
func (p *fakePlatform) ping(host string) bool {
	state, _ := p.GetNodeStatus(host)
	return state == types.PowerStateOn
}

type fakeHealth struct {
	pods     []string
	csr      string
	expected []string
}

func (f *fakeHealth) VerifyNodeHealthStatus(_ context.Context, expected []string) error {
	f.expected = expected
	if strings.Join(expected, ",") != strings.Join(f.pods, ",") {
		return errors.Errorf("pods are %v, expected %v", f.pods, expected)
	}
	return nil
}

func (f *fakeHealth) CheckCSRHealthStatus(_ context.Context, status string) error {
	if status != f.csr {
		return errors.Errorf("cluster status is %s, expected %s", f.csr, status)
	}
	return nil
}

const servicesUp = `Data pool:
    # fid name
    0x6f00000000000001:0x0 'storage-set-1__sns'
Services:
    cortx-data-headless-svc-1  (RC)
    [started]  hax        0x7200000000000001:0x6  inet:tcp:cortx-data-headless-svc-1@22001
    [started]  ioservice  0x7200000000000001:0x9  inet:tcp:cortx-data-headless-svc-1@21001
`

type fakeCluster struct {
	mu       sync.Mutex
	up       bool
	commands []string
	shutdown []string
	execErr  error
}

func (f *fakeCluster) ExecOnMaster(_ context.Context, cmd string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, cmd)
	if f.execErr != nil {
		return "", f.execErr
	}
	switch {
	case strings.HasSuffix(cmd, common.ClusterStartScript):
		f.up = true
	case strings.HasSuffix(cmd, common.ClusterStopScript):
		f.up = false
	case strings.HasSuffix(cmd, common.ClusterStatusScript):
		if !f.up {
			return "Data pods: FAILED\n", nil
		}
		return "Data pods: PASSED\nControl pods: PASSED\n", nil
	}
	return "", nil
}

func (f *fakeCluster) SafeShutdown(_ context.Context, host string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shutdown = append(f.shutdown, host)
	return nil
}

func (f *fakeCluster) ExecInClusterPod(_ context.Context, podPrefix, container, cmd string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if podPrefix != common.ClusterPodPrefix || container != common.HaxContainerName || cmd != common.MotrStatusCmd {
		return "", errors.Errorf("unexpected exec %s %s %s", podPrefix, container, cmd)
	}
	if !f.up {
		return "", errors.New("no running pod")
	}
	return servicesUp, nil
}

func (f *fakeCluster) ClusterPodsUp(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.up, nil
}

func etagOf(data []byte) string {
	sum := md5.Sum(data)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

// memS3 is one object store shared by every account
type memS3 struct {
	mu         sync.Mutex
	buckets    map[string]map[string][]byte
	uploads    map[string]map[int32][]byte
	failParts  map[int32]bool
	nextUpload int
	iamCleared int
	iamErr     error
}

func newMemS3() *memS3 {
	return &memS3{
		buckets:   map[string]map[string][]byte{},
		uploads:   map[string]map[int32][]byte{},
		failParts: map[int32]bool{},
	}
}

func (s *memS3) factory(context.Context, common.S3Account) (S3Client, error) {
	return s, nil
}

func (s *memS3) bucket(name string) (map[string][]byte, error) {
	b, ok := s.buckets[name]
	if !ok {
		return nil, errors.Errorf("NoSuchBucket %s", name)
	}
	return b, nil
}

func (s *memS3) PutObjectBytes(_ context.Context, bucket, key string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.bucket(bucket)
	if err != nil {
		return "", err
	}
	b[key] = append([]byte{}, data...)
	return etagOf(data), nil
}

func (s *memS3) GetObjectBytes(_ context.Context, bucket, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.bucket(bucket)
	if err != nil {
		return nil, err
	}
	data, ok := b[key]
	if !ok {
		return nil, errors.Errorf("NoSuchKey %s", key)
	}
	return data, nil
}

func (s *memS3) DeleteObject(_ context.Context, bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.bucket(bucket)
	if err != nil {
		return err
	}
	delete(b, key)
	return nil
}

func (s *memS3) CreateBucket(_ context.Context, bucket string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buckets[bucket]; ok {
		return errors.Errorf("BucketAlreadyExists %s", bucket)
	}
	s.buckets[bucket] = map[string][]byte{}
	return nil
}

func (s *memS3) ListBuckets(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for name := range s.buckets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *memS3) DeleteAllBuckets(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets = map[string]map[string][]byte{}
	return nil
}

func (s *memS3) DeleteAllIAMUsers(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.iamCleared++
	return s.iamErr
}

func (s *memS3) ListObjects(_ context.Context, bucket, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.bucket(bucket)
	if err != nil {
		return nil, err
	}
	var keys []string
	for key := range b {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *memS3) PutObjectFile(ctx context.Context, bucket, key, path string, _ map[string]string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return s.PutObjectBytes(ctx, bucket, key, data)
}

func (s *memS3) CopyObject(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) (string, error) {
	data, err := s.GetObjectBytes(ctx, srcBucket, srcKey)
	if err != nil {
		return "", err
	}
	return s.PutObjectBytes(ctx, dstBucket, dstKey, data)
}

func (s *memS3) CreateMultipartUpload(_ context.Context, bucket, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.bucket(bucket); err != nil {
		return "", err
	}
	s.nextUpload++
	id := fmt.Sprintf("upload-%d", s.nextUpload)
	s.uploads[id] = map[int32][]byte{}
	return id, nil
}

func (s *memS3) UploadPart(_ context.Context, _, _, uploadID string, partNumber int32, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failParts[partNumber] {
		return "", errors.Errorf("part %d: ServiceUnavailable", partNumber)
	}
	u, ok := s.uploads[uploadID]
	if !ok {
		return "", errors.Errorf("NoSuchUpload %s", uploadID)
	}
	u[partNumber] = append([]byte{}, data...)
	return etagOf(data), nil
}

func (s *memS3) ListParts(_ context.Context, _, _, uploadID string) ([]s3types.Part, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var parts []s3types.Part
	for n, data := range s.uploads[uploadID] {
		parts = append(parts, s3types.Part{PartNumber: aws.Int32(n), ETag: aws.String(etagOf(data))})
	}
	return parts, nil
}

func (s *memS3) CompleteMultipartUpload(_ context.Context, bucket, key, uploadID string, parts []s3types.CompletedPart) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.uploads[uploadID]
	if !ok {
		return "", errors.Errorf("NoSuchUpload %s", uploadID)
	}
	var buf bytes.Buffer
	for i, p := range parts {
		n := aws.ToInt32(p.PartNumber)
		if i > 0 && n <= aws.ToInt32(parts[i-1].PartNumber) {
			return "", errors.New("InvalidPartOrder")
		}
		data, ok := u[n]
		if !ok || etagOf(data) != aws.ToString(p.ETag) {
			return "", errors.Errorf("InvalidPart %d", n)
		}
		buf.Write(data)
	}
	b, err := s.bucket(bucket)
	if err != nil {
		return "", err
	}
	b[key] = buf.Bytes()
	delete(s.uploads, uploadID)
	return etagOf(buf.Bytes()), nil
}

type fakeUsers struct {
	mu      sync.Mutex
	users   map[string]bool
	removed []string
}

func (f *fakeUsers) CreateAccountUsers(_ context.Context, prefix string, n int) ([]common.S3Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var accounts []common.S3Account
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("%s-%d", prefix, len(f.users))
		f.users[name] = true
		accounts = append(accounts, common.S3Account{UserName: name, AccessKey: "AK" + name, SecretKey: "SK" + name})
	}
	return accounts, nil
}

func (f *fakeUsers) RemoveUser(_ context.Context, _, uid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.users[uid] {
		return errors.Errorf("NoSuchUser %s", uid)
	}
	delete(f.users, uid)
	f.removed = append(f.removed, uid)
	return nil
}

type fakeBench struct {
	dir    string
	sizes  []string
	output map[string]string
}

func (f *fakeBench) Setup() error { return nil }

func (f *fakeBench) Run(_ common.S3Account, logPrefix string, opts workload.S3BenchOptions) (string, error) {
	f.sizes = append(f.sizes, opts.ObjectSize)
	out, ok := f.output[opts.ObjectSize]
	if !ok {
		out = "Errors Count:  0\n"
	}
	path := filepath.Join(f.dir, "log_"+logPrefix+"_"+opts.ObjectSize+".log")
	return path, os.WriteFile(path, []byte(out), 0644)
}
