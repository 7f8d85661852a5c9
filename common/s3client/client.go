package s3client

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"

	"cortx-e2e/common"
	"cortx-e2e/common/e2e_config"
)

type Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	// Anonymous requests are sent unsigned
	Anonymous   bool
	MaxAttempts int
}

// Client is an S3 (and IAM) client for one account of the object store
type Client struct {
	s3        *s3.Client
	iam       *iam.Client
	AccessKey string
}

// New creates a client for cfg, path style addressing against the configured endpoint
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("S3 endpoint is required")
	}
	if !cfg.Anonymous && (cfg.AccessKey == "" || cfg.SecretKey == "") {
		return nil, errors.New("credentials are required")
	}
	region := cfg.Region
	if region == "" {
		region = common.DefaultRegion
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = retry.DefaultMaxAttempts
	}

	var credsProvider aws.CredentialsProvider = credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
	if cfg.Anonymous {
		credsProvider = aws.AnonymousCredentials{}
	}
	httpClient := awshttp.NewBuildableClient().WithTransportOptions(func(tr *http.Transport) {
		// test clusters serve self signed certificates
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	})

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credsProvider),
		config.WithHTTPClient(httpClient),
		config.WithRetryer(func() aws.Retryer {
			return retry.NewStandard(func(opts *retry.StandardOptions) {
				opts.MaxAttempts = maxAttempts
				opts.MaxBackoff = 30 * time.Second
			})
		}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load AWS config")
	}

	return &Client{
		s3: s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.UsePathStyle = true
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
			o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
		}),
		iam: iam.NewFromConfig(awsCfg, func(o *iam.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}),
		AccessKey: cfg.AccessKey,
	}, nil
}

func configFor(accessKey, secretKey string, anonymous bool) Config {
	e2eCfg := e2e_config.GetConfig()
	return Config{
		Endpoint:    e2eCfg.S3.Endpoint,
		Region:      e2eCfg.S3.Region,
		AccessKey:   accessKey,
		SecretKey:   secretKey,
		Anonymous:   anonymous,
		MaxAttempts: e2eCfg.S3.MaxAttempts,
	}
}

// ForAccount creates a client signing with the keys of account
func ForAccount(ctx context.Context, account common.S3Account) (*Client, error) {
	return New(ctx, configFor(account.AccessKey, account.SecretKey, false))
}

// Default creates a client signing with the configured keys
func Default(ctx context.Context) (*Client, error) {
	cfg := e2e_config.GetConfig()
	return New(ctx, configFor(cfg.S3.AccessKey, cfg.S3.SecretKey, false))
}

// Anonymous creates a client sending unsigned requests
func Anonymous(ctx context.Context) (*Client, error) {
	return New(ctx, configFor("", "", true))
}
