package k8stest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"cortx-e2e/common"
	"cortx-e2e/common/e2e_config"
	"cortx-e2e/common/loki"
	"cortx-e2e/common/reporter"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/envtest"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"
)

type TestEnvironment struct {
	Cfg        *rest.Config
	K8sClient  client.Client
	KubeInt    kubernetes.Interface
	K8sManager *ctrl.Manager
	TestEnv    *envtest.Environment
	cancel     context.CancelFunc
}

var gTestEnv TestEnvironment

// InitTesting initialise testing and setup class name + report filename.
func InitTesting(t *testing.T, classname string, reportname string) {
	RegisterFailHandler(Fail)
	fmt.Printf("Storage cluster namespace is \"%s\"\n", common.NSCluster())
	loki.SendLokiMarker("Start of test " + classname)
	RunSpecsWithDefaultAndCustomReporters(t, classname, reporter.GetReporters(reportname))
}

// SetupTestEnv attaches to the existing cluster named by the kube config
func SetupTestEnv() {
	logf.SetLogger(zap.New(zap.UseDevMode(true), zap.WriteTo(GinkgoWriter)))
	fmt.Printf("Storage cluster namespace is \"%s\"\n", common.NSCluster())

	By("bootstrapping test environment")
	var err error

	useCluster := true
	testEnv := &envtest.Environment{
		UseExistingCluster:       &useCluster,
		AttachControlPlaneOutput: true,
	}

	cfg, err := testEnv.Start()
	Expect(err).ToNot(HaveOccurred())
	Expect(cfg).ToNot(BeNil())

	k8sManager, err := ctrl.NewManager(cfg, ctrl.Options{
		Scheme: scheme.Scheme,
		// We do not consume prometheus metrics.
		Metrics: metricsserver.Options{BindAddress: "0"},
	})
	Expect(err).ToNot(HaveOccurred())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer GinkgoRecover()
		err := k8sManager.Start(ctx)
		Expect(err).ToNot(HaveOccurred())
	}()

	mgrSyncCtx, mgrSyncCtxCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer mgrSyncCtxCancel()
	if synced := k8sManager.GetCache().WaitForCacheSync(mgrSyncCtx); !synced {
		fmt.Println("Failed to sync")
	}

	k8sClient := k8sManager.GetClient()
	Expect(k8sClient).ToNot(BeNil())

	kubeInt := kubernetes.NewForConfigOrDie(cfg)
	Expect(kubeInt).ToNot(BeNil())

	gTestEnv = TestEnvironment{
		Cfg:        cfg,
		K8sClient:  k8sClient,
		KubeInt:    kubeInt,
		K8sManager: &k8sManager,
		TestEnv:    testEnv,
		cancel:     cancel,
	}
}

// ConnectCluster creates the clients used by the helpers outside of a test
// suite, from the default kube config
func ConnectCluster() error {
	cfg, err := ctrl.GetConfig()
	if err != nil {
		return err
	}
	k8sClient, err := client.New(cfg, client.Options{Scheme: scheme.Scheme})
	if err != nil {
		return err
	}
	kubeInt, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return err
	}
	gTestEnv = TestEnvironment{
		Cfg:       cfg,
		K8sClient: k8sClient,
		KubeInt:   kubeInt,
	}
	return nil
}

func TeardownTestEnvNoCleanup() {
	if gTestEnv.cancel != nil {
		gTestEnv.cancel()
	}
	err := gTestEnv.TestEnv.Stop()
	Expect(err).ToNot(HaveOccurred())
}

func TeardownTestEnv() {
	AfterSuiteCleanup()
	TeardownTestEnvNoCleanup()
}

// AfterSuiteCleanup  placeholder function for now
// To aid postmortem analysis for the most common CI use case
// namely cluster is retained on failure, we do nothing
func AfterSuiteCleanup() {
	logf.Log.Info("AfterSuiteCleanup")
}

// ResourceCheck  Fit for purpose checks
// - All nodes are ready
// - No storage cluster pod is failed or in an unknown phase
// - At least one storage cluster pod is running
func ResourceCheck() error {
	var errorMsg = ""

	ready, err := AreNodesReady()
	if err != nil {
		errorMsg += fmt.Sprintf(" %v", err)
	} else if !ready {
		errorMsg += " not all nodes are ready"
	}

	err = CheckPodsHealth(common.NSCluster())
	if err != nil {
		errorMsg += fmt.Sprintf(" %v", err)
	}

	running, err := CheckPodStatus(common.NSCluster())
	if err != nil {
		errorMsg += fmt.Sprintf(" %v", err)
	} else if !running {
		errorMsg += " no storage cluster pod is running"
	}

	if len(errorMsg) != 0 {
		return errors.New(errorMsg)
	}
	return nil
}

//BeforeEachCheck asserts that the state of the cluster is fit for the test to run
func BeforeEachCheck() error {
	logf.Log.Info("BeforeEachCheck")
	err := ResourceCheck()
	if err != nil {
		logf.Log.Info("ResourceCheck failed", "CleanupOnBeforeEach", e2e_config.GetConfig().CleanupOnBeforeEach)
		if e2e_config.GetConfig().CleanupOnBeforeEach {
			_, _ = DeleteFailedPods(common.NSCluster())
			err = ResourceCheck()
		}
		if err != nil {
			logf.Log.Info("BeforeEachCheck failed", "error", err)
		}
	}
	if err != nil {
		err = fmt.Errorf("not running test case, k8s cluster is not healthy!!!\n%v", err)
	}
	return err
}

// AfterEachCheck asserts that the state of the cluster has been restored.
func AfterEachCheck() error {
	logf.Log.Info("AfterEachCheck")
	err := ResourceCheck()
	if err != nil {
		logf.Log.Info("AfterEachCheck failed", "error", err)
	}
	return err
}
