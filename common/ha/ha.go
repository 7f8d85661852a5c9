package ha

import (
	"context"
	"time"

	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/pkg/errors"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	"cortx-e2e/common"
	"cortx-e2e/common/e2e_config"
	"cortx-e2e/common/health"
	"cortx-e2e/common/k8stest"
	"cortx-e2e/common/platform"
	"cortx-e2e/common/platform/types"
	"cortx-e2e/common/rgwadmin"
	"cortx-e2e/common/s3client"
	"cortx-e2e/common/workload"
)

// HealthChecker queries resource health from the management API
type HealthChecker interface {
	VerifyNodeHealthStatus(ctx context.Context, expected []string) error
	CheckCSRHealthStatus(ctx context.Context, status string) error
}

// ClusterOps runs commands on the cluster nodes and pods
type ClusterOps interface {
	ExecOnMaster(ctx context.Context, cmd string) (string, error)
	SafeShutdown(ctx context.Context, host string) error
	ExecInClusterPod(ctx context.Context, podPrefix, container, cmd string) (string, error)
	ClusterPodsUp(ctx context.Context) (bool, error)
}

// S3Client is the object store API used by the helpers
type S3Client interface {
	workload.ObjectStore
	CreateBucket(ctx context.Context, bucket string) error
	ListBuckets(ctx context.Context) ([]string, error)
	DeleteAllBuckets(ctx context.Context) error
	DeleteAllIAMUsers(ctx context.Context) error
	ListObjects(ctx context.Context, bucket, prefix string) ([]string, error)
	PutObjectFile(ctx context.Context, bucket, key, path string, metadata map[string]string) (string, error)
	CopyObject(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) (string, error)
	CreateMultipartUpload(ctx context.Context, bucket, key string) (string, error)
	UploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int32, data []byte) (string, error)
	ListParts(ctx context.Context, bucket, key, uploadID string) ([]s3types.Part, error)
	CompleteMultipartUpload(ctx context.Context, bucket, key, uploadID string, parts []s3types.CompletedPart) (string, error)
}

// S3Factory returns a client signing requests as account
type S3Factory func(ctx context.Context, account common.S3Account) (S3Client, error)

// UserManager creates and removes object store accounts
type UserManager interface {
	CreateAccountUsers(ctx context.Context, prefix string, n int) ([]common.S3Account, error)
	RemoveUser(ctx context.Context, tenant, uid string) error
}

// Bench runs s3bench passes
type Bench interface {
	Setup() error
	Run(account common.S3Account, logPrefix string, opts workload.S3BenchOptions) (string, error)
}

type Deps struct {
	Platform types.Platform
	Ping     func(host string) bool
	Health   HealthChecker
	Cluster  ClusterOps
	S3       S3Factory
	Users    UserManager
	Bench    Bench
}

type Config struct {
	SetupType       common.SetupType
	PowerOnTimeout  time.Duration
	PowerOffTimeout time.Duration
	PollInterval    time.Duration
	ClusterDelay    time.Duration
	ScriptsDir      string
	// NumPods is the number of data pods reported by the management API
	NumPods int
	// MaxFileSize bounds the objects written by IO runs, e.g. "4MiB"
	MaxFileSize string
}

// HA drives node failures and checks the storage cluster around them
type HA struct {
	cfg      Config
	platform types.Platform
	ping     func(host string) bool
	health   HealthChecker
	cluster  ClusterOps
	s3       S3Factory
	users    UserManager
	bench    Bench
}

func New(cfg Config, deps Deps) *HA {
	ping := deps.Ping
	if ping == nil {
		ping = platform.Ping
	}
	return &HA{
		cfg:      cfg,
		platform: deps.Platform,
		ping:     ping,
		health:   deps.Health,
		cluster:  deps.Cluster,
		s3:       deps.S3,
		users:    deps.Users,
		bench:    deps.Bench,
	}
}

// ConfigFromE2E converts the HA section of the test configuration
func ConfigFromE2E(cfg e2e_config.E2EConfig) Config {
	numPods := cfg.HA.NumPods
	if numPods <= 0 {
		numPods = len(cfg.Nodes)
	}
	return Config{
		SetupType:       common.SetupType(cfg.Platform.SetupType),
		PowerOnTimeout:  time.Duration(cfg.HA.PowerOnTimeSecs) * time.Second,
		PowerOffTimeout: time.Duration(cfg.HA.PowerOffTimeSecs) * time.Second,
		PollInterval:    time.Duration(cfg.HA.PollIntervalSecs) * time.Second,
		ClusterDelay:    time.Duration(cfg.HA.ClusterDelaySecs) * time.Second,
		ScriptsDir:      cfg.HA.ScriptsDir,
		NumPods:         numPods,
		MaxFileSize:     cfg.Workload.MaxFileSize,
	}
}

// NewFromConfig wires the helpers to the configured cluster
func NewFromConfig() (*HA, error) {
	cfg := e2e_config.GetConfig()
	healthClient, err := health.NewFromConfig()
	if err != nil {
		return nil, err
	}
	users, err := rgwadmin.NewFromConfig()
	if err != nil {
		return nil, err
	}
	pf := platform.Create()
	if pf == nil {
		return nil, errors.Errorf("no platform for setup type %q", cfg.Platform.SetupType)
	}
	return New(ConfigFromE2E(cfg), Deps{
		Platform: pf,
		Ping:     platform.Ping,
		Health:   healthClient,
		Cluster:  k8stest.Cluster{},
		S3:       S3ForAccount,
		Users:    users,
		Bench:    workload.NewS3Bench(cfg.Workload.S3BenchPath, cfg.S3.Endpoint, cfg.S3.Region, cfg.Workload.LogDir),
	}), nil
}

// S3ForAccount is the S3Factory backed by the SDK client
func S3ForAccount(ctx context.Context, account common.S3Account) (S3Client, error) {
	c, err := s3client.ForAccount(ctx, account)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// PollingHost waits until host answers ping and is powered on, or the
// reverse when expectReachable is false
func (h *HA) PollingHost(ctx context.Context, host string, expectReachable bool, timeout time.Duration) bool {
	want := types.PowerStateOff
	if expectReachable {
		want = types.PowerStateOn
	}
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if err := sleep(ctx, h.cfg.PollInterval); err != nil {
			return false
		}
		reachable := h.ping(host)
		state, err := h.platform.GetNodeStatus(host)
		if err != nil {
			logf.Log.Info("Unable to get power status", "host", host, "error", err)
			return false
		}
		logf.Log.Info("Polling host", "host", host, "reachable", reachable, "powerState", state)
		if reachable == expectReachable && state == want {
			return true
		}
	}
	return false
}

// HostPowerOn powers host on and waits for it to be reachable
func (h *HA) HostPowerOn(ctx context.Context, host string) (bool, error) {
	logf.Log.Info("Powering on", "host", host)
	if err := h.platform.PowerOnNode(host); err != nil {
		return false, errors.Wrapf(err, "power on of %s failed", host)
	}
	logf.Log.Info("Check host is powered on", "host", host)
	return h.PollingHost(ctx, host, true, h.cfg.PowerOnTimeout), nil
}

// HostSafeUnsafePowerOff shuts host down gracefully through the node agent
// when isSafe is set, otherwise cuts its power, and waits for it to vanish
func (h *HA) HostSafeUnsafePowerOff(ctx context.Context, host string, isSafe bool) (bool, error) {
	if isSafe {
		logf.Log.Info("Safe shutdown", "host", host)
		if err := h.cluster.SafeShutdown(ctx, host); err != nil {
			// the node may drop the connection while going down
			logf.Log.Info("Shutdown request returned an error", "host", host, "error", err)
		}
	} else {
		logf.Log.Info("Powering off", "host", host)
		if err := h.platform.PowerOffNode(host); err != nil {
			return false, errors.Wrapf(err, "power off of %s failed", host)
		}
	}
	logf.Log.Info("Check host is powered off", "host", host)
	return h.PollingHost(ctx, host, false, h.cfg.PowerOffTimeout), nil
}

// StatusPodsOnline checks that numPods pods are all reported online
func (h *HA) StatusPodsOnline(ctx context.Context, numPods int) error {
	expected := make([]string, numPods)
	for i := range expected {
		expected[i] = common.HealthOnline.String()
	}
	logf.Log.Info("Check pods are online", "pods", numPods)
	return h.health.VerifyNodeHealthStatus(ctx, expected)
}

// StatusClusterResourceOnline checks cluster, site, rack and pods are online
func (h *HA) StatusClusterResourceOnline(ctx context.Context) error {
	logf.Log.Info("Check cluster, site, rack and pods are online")
	return h.CheckCSRNStatus(ctx, common.HealthOnline, common.HealthOnline, 0)
}

// CheckCSRNStatus expects podStatus for the pod at podID, online for the
// other pods, and csrStatus for cluster, site and rack
func (h *HA) CheckCSRNStatus(ctx context.Context, csrStatus, podStatus common.HealthStatus, podID int) error {
	expected := make([]string, h.cfg.NumPods)
	for i := range expected {
		expected[i] = common.HealthOnline.String()
		if i == podID {
			expected[i] = podStatus.String()
		}
	}
	logf.Log.Info("Check pod status", "pod", podID+1, "status", podStatus)
	if err := h.health.VerifyNodeHealthStatus(ctx, expected); err != nil {
		return err
	}
	logf.Log.Info("Check cluster, site and rack status", "status", csrStatus)
	return h.health.CheckCSRHealthStatus(ctx, csrStatus.String())
}
