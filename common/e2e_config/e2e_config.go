package e2e_config

import (
	"fmt"
	"io/ioutil"
	"os"
	"path"
	"sync"

	"gopkg.in/yaml.v2"

	"github.com/ilyakaznacheev/cleanenv"
)

const ConfigDir = "/configurations"
const PlatformConfigDir = "/configurations/platforms/"

type NodeConfig struct {
	Hostname string `yaml:"hostname"`
	// BmcAddr is the BMC address of bare metal nodes, unused on VMs.
	BmcAddr string `yaml:"bmcAddr"`
}

// E2EConfig is a application configuration structure
type E2EConfig struct {
	ConfigName string `yaml:"configName"`
	Platform   struct {
		// Name of the platform the tests are run against
		Name string `yaml:"name"`
		// SetupType is either VM or HW, power control differs between the two
		SetupType string `yaml:"setupType" env:"e2e_setup_type" env-default:"VM"`
		// Namespace the storage cluster is deployed in
		Namespace string `yaml:"namespace" env-default:"cortx"`
		// MasterNode is the host running the cluster deployment scripts
		MasterNode string `yaml:"masterNode" env:"e2e_master_node"`
	} `yaml:"platform"`

	Nodes []NodeConfig `yaml:"nodes"`

	E2eRootDir string `yaml:"e2eRootDir" env:"e2e_root_dir"`
	// ImageTag of the storage cluster under test, used to label log markers
	ImageTag    string `yaml:"imageTag" env:"e2e_image_tag" env-default:"latest"`
	LokiPushURL string `yaml:"lokiPushURL" env-default:"https://logs-prod-us-central1.grafana.net/loki/api/v1/push"`
	// Run configuration
	ReportsDir string `yaml:"reportsDir" env:"e2e_reports_dir"`
	// Policy on failed BeforeEach checks, see k8stest.BeforeEachCheck
	CleanupOnBeforeEach bool `yaml:"cleanupOnBeforeEach" env-default:"false" env:"e2e_policy_cleanup_before"`

	S3 struct {
		Endpoint  string `yaml:"endpoint" env:"e2e_s3_endpoint" env-default:"http://s3.seagate.com"`
		Region    string `yaml:"region" env-default:"us-east-1"`
		AccessKey string `yaml:"accessKey" env:"e2e_s3_access_key"`
		SecretKey string `yaml:"secretKey" env:"e2e_s3_secret_key"`
		// MaxAttempts for the SDK retryer
		MaxAttempts int `yaml:"maxAttempts" env-default:"5"`
	} `yaml:"s3"`

	Rgw struct {
		AdminEndpoint string `yaml:"adminEndpoint" env:"e2e_rgw_admin_endpoint"`
		AccessKey     string `yaml:"accessKey" env:"e2e_rgw_admin_access_key"`
		SecretKey     string `yaml:"secretKey" env:"e2e_rgw_admin_secret_key"`
	} `yaml:"rgw"`

	// Management REST API used for health queries
	Csm struct {
		Endpoint string `yaml:"endpoint" env:"e2e_csm_endpoint"`
		Username string `yaml:"username" env:"e2e_csm_user"`
		Password string `yaml:"password" env:"e2e_csm_password"`
		// StrictSchema validates every response against the embedded API document
		StrictSchema bool `yaml:"strictSchema" env-default:"true"`
	} `yaml:"csm"`

	HA struct {
		// PowerOnTimeSecs bounds the wait for a host to come back after power on
		PowerOnTimeSecs int `yaml:"powerOnTimeSecs" env-default:"600"`
		// PowerOffTimeSecs bounds the wait for a host to disappear after power off
		PowerOffTimeSecs int `yaml:"powerOffTimeSecs" env-default:"600"`
		// PollIntervalSecs is the sleep between two host probes
		PollIntervalSecs int `yaml:"pollIntervalSecs" env-default:"20"`
		// ClusterDelaySecs is the settle time after stopping or starting the cluster
		ClusterDelaySecs int    `yaml:"clusterDelaySecs" env-default:"60"`
		ScriptsDir       string `yaml:"scriptsDir" env-default:"/root/deploy-scripts/k8_cortx_cloud"`
		Vm               struct {
			Tool     string `yaml:"tool" env-default:"vm_tool"`
			User     string `yaml:"user" env:"QA_VM_POOL_ID"`
			Password string `yaml:"password" env:"QA_VM_POOL_PASSWORD"`
		} `yaml:"vm"`
		Bmc struct {
			User     string `yaml:"user" env:"e2e_bmc_user"`
			Password string `yaml:"password" env:"e2e_bmc_password"`
		} `yaml:"bmc"`
		// NumPods is the number of data pods the management API reports,
		// 0 means one per configured node
		NumPods int `yaml:"numPods" env:"e2e_num_pods"`
	} `yaml:"ha"`

	Workload struct {
		NUsers      int    `yaml:"nUsers" env-default:"2"`
		NBuckets    int    `yaml:"nBuckets" env-default:"2"`
		FilesCount  int    `yaml:"filesCount" env-default:"10"`
		MaxFileSize string `yaml:"maxFileSize" env-default:"4MiB"`
		// StopUploadTimeSecs is the write window for asynchronous IO
		StopUploadTimeSecs int    `yaml:"stopUploadTimeSecs" env-default:"60"`
		S3BenchPath        string `yaml:"s3benchPath" env-default:"s3bench"`
		S3BenchClients     int    `yaml:"s3benchClients" env-default:"10"`
		S3BenchSamples     int    `yaml:"s3benchSamples" env-default:"20"`
		LogDir             string `yaml:"logDir" env-default:"/tmp/s3bench"`
	} `yaml:"workload"`

	S3fs struct {
		Tool               string `yaml:"tool" env-default:"s3fs"`
		PasswdFile         string `yaml:"passwdFile" env-default:"/etc/passwd-s3fs"`
		MountDirPrefix     string `yaml:"mountDirPrefix" env-default:"/tmp/s3fs-dir-"`
		BucketPrefix       string `yaml:"bucketPrefix" env-default:"s3fs-bkt-"`
		DbgLevel           string `yaml:"dbgLevel" env-default:"info"`
		NoCheckCertificate bool   `yaml:"noCheckCertificate" env-default:"true"`
		SslVerifyHostname  bool   `yaml:"sslVerifyHostname" env-default:"false"`
		NoSSCache          bool   `yaml:"noSSCache" env-default:"true"`
		LargeFileMb        int    `yaml:"largeFileMb" env-default:"1024"`
	} `yaml:"s3fs"`

	AllUsersObjAcl struct {
		BucketPrefix string `yaml:"bucketPrefix" env-default:"allusers-objacl-bkt-"`
		ObjPrefix    string `yaml:"objPrefix" env-default:"allusers-objacl-obj-"`
		FilePath     string `yaml:"filePath" env-default:"/tmp/allusers_obj_acl.txt"`
		MbCount      int    `yaml:"mbCount" env-default:"5"`
	} `yaml:"allUsersObjAcl"`

	RgwCreateUser struct {
		UserNamePrefix string `yaml:"userNamePrefix" env-default:"user"`
		EmailDomain    string `yaml:"emailDomain" env-default:"seagate.com"`
		MaxBuckets     int    `yaml:"maxBuckets" env-default:"2000"`
		Tenant         string `yaml:"tenant" env-default:"tenant"`
	} `yaml:"rgwCreateUser"`

	HANodePowerCycle struct {
		// NodeIndex selects the node to power cycle from Nodes
		NodeIndex int `yaml:"nodeIndex" env-default:"1"`
		// RemoveHAAgent deletes the agent daemonSet once the suite is done
		RemoveHAAgent bool `yaml:"removeHAAgent"`
	} `yaml:"haNodePowerCycle"`

	HAClusterRestart struct {
		MpuFileSizeMb int `yaml:"mpuFileSizeMb" env-default:"100"`
		MpuTotalParts int `yaml:"mpuTotalParts" env-default:"10"`
	} `yaml:"haClusterRestart"`
}

var once sync.Once
var e2eConfig E2EConfig

// This function is called early from junit and various bits have not been initialised yet
// so we cannot use logf or Expect instead we use fmt.Print... and panic.
func GetConfig() E2EConfig {
	var err error
	e2eRootDir, okE2eRootDir := os.LookupEnv("e2e_root_dir")
	once.Do(func() {
		// A configuration file *MUST* be specified.
		value, ok := os.LookupEnv("e2e_config_file")
		if !ok {
			panic("configuration file not specified, use env var e2e_config_file")
		}
		configFile := path.Clean(e2eRootDir + ConfigDir + "/" + value)
		fmt.Printf("Using configuration file %s\n", configFile)
		err = cleanenv.ReadConfig(configFile, &e2eConfig)
		if err != nil {
			panic(fmt.Sprintf("%v", err))
		}

		value, ok = os.LookupEnv("e2e_platform_config_file")
		if !ok {
			panic("Platform configuration file not specified, use env var e2e_platform_config_file")
		}
		platformCfg := path.Clean(e2eRootDir + PlatformConfigDir + value)
		fmt.Printf("Using platform configuration file %s\n", platformCfg)
		err = cleanenv.ReadConfig(platformCfg, &e2eConfig)
		if err != nil {
			panic(fmt.Sprintf("%v", err))
		}

		// The environment variable overrides the configuration setting,
		// at least one of them must be defined.
		if !okE2eRootDir {
			if e2eConfig.E2eRootDir == "" {
				panic("E2E root directory is not specified.")
			}
		} else {
			if e2eRootDir != e2eConfig.E2eRootDir {
				fmt.Printf("overriding configuration e2e root dir from %s to %s\n", e2eConfig.E2eRootDir, e2eRootDir)
			}
			e2eConfig.E2eRootDir = e2eRootDir
		}

		if e2eConfig.Platform.SetupType != "VM" && e2eConfig.Platform.SetupType != "HW" {
			panic(fmt.Sprintf("Configuration error unsupported setup type %q", e2eConfig.Platform.SetupType))
		}

		cfgBytes, _ := yaml.Marshal(e2eConfig)
		cfgUsedFile := path.Clean(e2eConfig.E2eRootDir + "/artifacts/used-" + e2eConfig.ConfigName + "-" + e2eConfig.Platform.Name + ".yaml")
		err = ioutil.WriteFile(cfgUsedFile, cfgBytes, 0644)
		if err == nil {
			fmt.Printf("Resolved config written to %s\n", cfgUsedFile)
		}
	})

	return e2eConfig
}

// BmcAddress returns the BMC address configured for a host, or "" if the host is unknown.
func (cfg E2EConfig) BmcAddress(host string) string {
	for _, node := range cfg.Nodes {
		if node.Hostname == host {
			return node.BmcAddr
		}
	}
	return ""
}
