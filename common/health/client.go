package health

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-openapi/runtime"
	httptransport "github.com/go-openapi/runtime/client"
	"github.com/go-openapi/strfmt"
	"github.com/go-openapi/swag"
	"github.com/pkg/errors"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	"cortx-e2e/common/e2e_config"
)

const basePath = "/api/v2"

// Resources reported by CheckCSRHealthStatus, in the order they are checked.
var CSRResources = []string{"cluster", "site", "rack"}

// Client talks to the management REST API. A session token is acquired on
// first use and refreshed once when a request is rejected as unauthorised.
type Client struct {
	transport    runtime.ClientTransport
	username     string
	password     string
	strictSchema bool

	mu    sync.Mutex
	token string
}

// NewClient creates a client for endpoint, e.g. https://host:31169
func NewClient(endpoint, username, password string, strictSchema bool) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid management endpoint %q", endpoint)
	}
	if u.Host == "" {
		return nil, errors.Errorf("invalid management endpoint %q", endpoint)
	}
	scheme := u.Scheme
	if scheme == "" {
		scheme = "https"
	}
	httpClient := &http.Client{
		Timeout: 2 * time.Minute,
		Transport: &http.Transport{
			// management endpoints use self signed certificates
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
		},
	}
	rt := httptransport.NewWithClient(u.Host, basePath, []string{scheme}, httpClient)
	return &Client{
		transport:    rt,
		username:     username,
		password:     password,
		strictSchema: strictSchema,
	}, nil
}

// NewFromConfig creates a client for the management endpoint of the configuration
func NewFromConfig() (*Client, error) {
	cfg := e2e_config.GetConfig()
	return NewClient(cfg.Csm.Endpoint, cfg.Csm.Username, cfg.Csm.Password, cfg.Csm.StrictSchema)
}

// Login opens a session and keeps the Authorization header for later calls
func (c *Client) Login(ctx context.Context) error {
	body := &LoginRequest{Username: c.username, Password: c.password}
	if err := body.Validate(strfmt.Default); err != nil {
		return err
	}
	res, err := c.transport.Submit(&runtime.ClientOperation{
		ID:                 "login",
		Method:             http.MethodPost,
		PathPattern:        "/login",
		ProducesMediaTypes: []string{runtime.JSONMime},
		ConsumesMediaTypes: []string{runtime.JSONMime},
		Params: runtime.ClientRequestWriterFunc(func(r runtime.ClientRequest, _ strfmt.Registry) error {
			return r.SetBodyParam(body)
		}),
		Reader: runtime.ClientResponseReaderFunc(func(resp runtime.ClientResponse, _ runtime.Consumer) (interface{}, error) {
			if resp.Code() != http.StatusOK {
				return nil, apiError("login", resp)
			}
			token := resp.GetHeader("Authorization")
			if token == "" {
				return nil, errors.New("login response carries no Authorization header")
			}
			return token, nil
		}),
		Context: ctx,
	})
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.token = res.(string)
	c.mu.Unlock()
	logf.Log.Info("Logged in to management API", "user", c.username)
	return nil
}

func (c *Client) authorization(ctx context.Context) (string, error) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token != "" {
		return token, nil
	}
	if err := c.Login(ctx); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token, nil
}

func apiError(opName string, resp runtime.ClientResponse) *runtime.APIError {
	payload := &ErrorResponse{}
	body, _ := io.ReadAll(resp.Body())
	if swag.ReadJSON(body, payload) != nil || payload.Message == "" {
		payload.Message = string(body)
	}
	return runtime.NewAPIError(opName, payload, resp.Code())
}

func (c *Client) getHealth(ctx context.Context, resource string) (*HealthResponse, error) {
	for attempt := 0; ; attempt++ {
		token, err := c.authorization(ctx)
		if err != nil {
			return nil, err
		}
		res, err := c.transport.Submit(&runtime.ClientOperation{
			ID:                 "getResourceHealth",
			Method:             http.MethodGet,
			PathPattern:        "/system/health/{resource}",
			ProducesMediaTypes: []string{runtime.JSONMime},
			ConsumesMediaTypes: []string{runtime.JSONMime},
			Params: runtime.ClientRequestWriterFunc(func(r runtime.ClientRequest, _ strfmt.Registry) error {
				if err := r.SetPathParam("resource", resource); err != nil {
					return err
				}
				return r.SetHeaderParam("Authorization", token)
			}),
			Reader: runtime.ClientResponseReaderFunc(func(resp runtime.ClientResponse, _ runtime.Consumer) (interface{}, error) {
				if resp.Code() != http.StatusOK {
					return nil, apiError("getResourceHealth", resp)
				}
				body, err := io.ReadAll(resp.Body())
				if err != nil {
					return nil, err
				}
				if c.strictSchema {
					if err := ValidatePayload("HealthResponse", body); err != nil {
						return nil, errors.Wrapf(err, "%s health response does not match the API", resource)
					}
				}
				payload := &HealthResponse{}
				if err := payload.UnmarshalBinary(body); err != nil {
					return nil, err
				}
				if err := payload.Validate(strfmt.Default); err != nil {
					return nil, err
				}
				return payload, nil
			}),
			Context: ctx,
		})
		if err != nil {
			var apiErr *runtime.APIError
			if errors.As(err, &apiErr) && apiErr.IsCode(http.StatusUnauthorized) && attempt == 0 {
				c.mu.Lock()
				c.token = ""
				c.mu.Unlock()
				continue
			}
			return nil, err
		}
		return res.(*HealthResponse), nil
	}
}

// GetPodsHealth returns the health of every node/pod known to the cluster
func (c *Client) GetPodsHealth(ctx context.Context) ([]*ResourceHealth, error) {
	res, err := c.getHealth(ctx, "node")
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}

// GetResourceHealth returns the health of the cluster, site or rack
func (c *Client) GetResourceHealth(ctx context.Context, resource string) (*ResourceHealth, error) {
	res, err := c.getHealth(ctx, resource)
	if err != nil {
		return nil, err
	}
	if len(res.Data) == 0 {
		return nil, errors.Errorf("no %s health reported", resource)
	}
	return res.Data[0], nil
}

// VerifyNodeHealthStatus compares the reported pod statuses with expected, position by position
func (c *Client) VerifyNodeHealthStatus(ctx context.Context, expected []string) error {
	nodes, err := c.GetPodsHealth(ctx)
	if err != nil {
		return err
	}
	actual := make([]string, 0, len(nodes))
	for _, n := range nodes {
		actual = append(actual, n.Status)
	}
	logf.Log.Info("Pods health", "expected", expected, "actual", actual)
	if len(actual) != len(expected) {
		return errors.Errorf("expected %d pods, management API reports %d: %v", len(expected), len(actual), actual)
	}
	for i := range expected {
		if actual[i] != expected[i] {
			return errors.Errorf("pod-%d (%s) is %s, expected %s", i+1, nodes[i].ID, actual[i], expected[i])
		}
	}
	return nil
}

// CheckCSRHealthStatus checks that cluster, site and rack all report status
func (c *Client) CheckCSRHealthStatus(ctx context.Context, status string) error {
	for _, resource := range CSRResources {
		rh, err := c.GetResourceHealth(ctx, resource)
		if err != nil {
			return err
		}
		logf.Log.Info("Resource health", "resource", resource, "status", rh.Status)
		if rh.Status != status {
			return errors.Errorf("%s status is %s, expected %s", resource, rh.Status, status)
		}
	}
	return nil
}
