package common

// SetupType distinguishes virtual machine deployments from bare metal.
type SetupType string

const (
	SetupVM SetupType = "VM"
	SetupHW SetupType = "HW"
)

// HealthStatus is the state reported for a cluster resource by the management API.
type HealthStatus string

const (
	HealthOnline   HealthStatus = "online"
	HealthOffline  HealthStatus = "offline"
	HealthDegraded HealthStatus = "degraded"
	HealthFailed   HealthStatus = "failed"
	HealthUnknown  HealthStatus = "unknown"
)

func (hs HealthStatus) String() string {
	return string(hs)
}

// S3Account is an object store account and the keys used to access it.
type S3Account struct {
	UserName  string
	AccessKey string
	SecretKey string
}
