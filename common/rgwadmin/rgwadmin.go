package rgwadmin

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ceph/go-ceph/rgw/admin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	"cortx-e2e/common"
	"cortx-e2e/common/e2e_config"
)

// ErrBadRequest is returned for user specifications the gateway refuses
var ErrBadRequest = errors.New("bad request")

// UserSpec describes a user to create
type UserSpec struct {
	UID         string
	DisplayName string
	Email       string
	Tenant      string
	// MaxBuckets is left to the gateway default when nil
	MaxBuckets *int
}

// Client manages object store users through the RGW admin ops API
type Client struct {
	api *admin.API
}

func New(endpoint, accessKey, secretKey string) (*Client, error) {
	api, err := admin.New(endpoint, accessKey, secretKey, &http.Client{Timeout: time.Minute})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create admin ops client")
	}
	return &Client{api: api}, nil
}

// NewFromConfig creates a client for the configured admin endpoint
func NewFromConfig() (*Client, error) {
	cfg := e2e_config.GetConfig()
	return New(cfg.Rgw.AdminEndpoint, cfg.Rgw.AccessKey, cfg.Rgw.SecretKey)
}

// FullUID is the gateway identifier of uid in tenant
func FullUID(tenant, uid string) string {
	if tenant == "" {
		return uid
	}
	return tenant + "$" + uid
}

func (c *Client) CreateUser(ctx context.Context, spec UserSpec) (admin.User, error) {
	if spec.UID == "" {
		return admin.User{}, errors.Wrap(ErrBadRequest, "uid is required")
	}
	if spec.DisplayName == "" {
		return admin.User{}, errors.Wrap(ErrBadRequest, "display name is required")
	}
	generate := true
	user := admin.User{
		ID:          FullUID(spec.Tenant, spec.UID),
		DisplayName: spec.DisplayName,
		Email:       spec.Email,
		MaxBuckets:  spec.MaxBuckets,
		GenerateKey: &generate,
	}
	logf.Log.Info("Creating user", "uid", user.ID, "displayName", user.DisplayName, "email", user.Email)
	created, err := c.api.CreateUser(ctx, user)
	if err != nil {
		return admin.User{}, errors.Wrapf(err, "failed to create user %s", user.ID)
	}
	return created, nil
}

func (c *Client) GetUser(ctx context.Context, tenant, uid string) (admin.User, error) {
	user, err := c.api.GetUser(ctx, admin.User{ID: FullUID(tenant, uid)})
	if err != nil {
		return admin.User{}, errors.Wrapf(err, "failed to get user %s", FullUID(tenant, uid))
	}
	return user, nil
}

// RemoveUser deletes the user and purges its data
func (c *Client) RemoveUser(ctx context.Context, tenant, uid string) error {
	purge := 1
	logf.Log.Info("Removing user", "uid", FullUID(tenant, uid))
	err := c.api.RemoveUser(ctx, admin.User{ID: FullUID(tenant, uid), PurgeData: &purge})
	return errors.Wrapf(err, "failed to remove user %s", FullUID(tenant, uid))
}

// CreateAccountUsers creates n users with generated keys for workloads
func (c *Client) CreateAccountUsers(ctx context.Context, prefix string, n int) ([]common.S3Account, error) {
	accounts := make([]common.S3Account, 0, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("%s-%s", prefix, uuid.NewString()[:8])
		user, err := c.CreateUser(ctx, UserSpec{UID: name, DisplayName: name, Email: name + "@seagate.com"})
		if err != nil {
			return accounts, err
		}
		account, err := AccountOf(user)
		if err != nil {
			return accounts, err
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

// AccountOf returns the first S3 key pair of user
func AccountOf(user admin.User) (common.S3Account, error) {
	for _, key := range user.Keys {
		if key.AccessKey != "" && key.SecretKey != "" {
			return common.S3Account{UserName: user.ID, AccessKey: key.AccessKey, SecretKey: key.SecretKey}, nil
		}
	}
	return common.S3Account{}, errors.Errorf("user %s has no S3 keys", user.ID)
}

// IsConflict reports a user, email or key that already exists
func IsConflict(err error) bool {
	return errors.Is(err, admin.ErrUserExists) || errors.Is(err, admin.ErrEmailExists) || errors.Is(err, admin.ErrKeyExists)
}

func IsNotFound(err error) bool {
	return errors.Is(err, admin.ErrNoSuchUser)
}

func IsBadRequest(err error) bool {
	return errors.Is(err, ErrBadRequest) || errors.Is(err, admin.ErrInvalidArgument)
}
