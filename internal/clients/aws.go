package clients

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/securityhub"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	vahtierrors "github.com/yairfalse/vahti/internal/errors"
)

// STSAPI is the subset of the STS client used to resolve the caller account
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// AWSClients holds the AWS service clients used by vahti
type AWSClients struct {
	S3          *s3.Client
	SSM         *ssm.Client
	SecurityHub *securityhub.Client
	STS         STSAPI
	Config      aws.Config
}

// ClientConfig holds configuration for AWS client creation
type ClientConfig struct {
	Region     string
	Profile    string
	MaxRetries int
	Timeout    time.Duration
}

// LoadAWSConfig resolves the shared AWS configuration with profile, region,
// retry and timeout settings applied
func LoadAWSConfig(ctx context.Context, clientConfig ClientConfig) (aws.Config, error) {
	if clientConfig.MaxRetries == 0 {
		clientConfig.MaxRetries = 3
	}
	if clientConfig.Timeout == 0 {
		clientConfig.Timeout = 30 * time.Second
	}

	var opts []func(*config.LoadOptions) error

	if clientConfig.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(clientConfig.Profile))
	}

	if clientConfig.Region != "" {
		opts = append(opts, config.WithRegion(clientConfig.Region))
	}

	opts = append(opts,
		config.WithRetryer(func() aws.Retryer {
			return retry.AddWithMaxAttempts(retry.NewStandard(), clientConfig.MaxRetries)
		}),
		config.WithHTTPClient(awshttp.NewBuildableClient().WithTimeout(clientConfig.Timeout)),
	)

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, vahtierrors.AWSCredentialsError(err).
			WithCause("failed to load AWS config")
	}
	return cfg, nil
}

// NewAWSClients creates and configures AWS service clients
func NewAWSClients(ctx context.Context, clientConfig ClientConfig) (*AWSClients, error) {
	cfg, err := LoadAWSConfig(ctx, clientConfig)
	if err != nil {
		return nil, err
	}

	return &AWSClients{
		S3:          s3.NewFromConfig(cfg),
		SSM:         ssm.NewFromConfig(cfg),
		SecurityHub: securityhub.NewFromConfig(cfg),
		STS:         sts.NewFromConfig(cfg),
		Config:      cfg,
	}, nil
}

// GetRegion returns the configured region
func (c *AWSClients) GetRegion() string {
	return c.Config.Region
}

// CallerAccount returns the account id of the active credentials
func (c *AWSClients) CallerAccount(ctx context.Context) (string, error) {
	return CallerAccount(ctx, c.STS)
}

// CallerAccount asks STS which account the credentials belong to
func CallerAccount(ctx context.Context, client STSAPI) (string, error) {
	result, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", vahtierrors.AWSCredentialsError(err)
	}

	if result.Account == nil || aws.ToString(result.Account) == "" {
		return "", fmt.Errorf("received invalid identity information from AWS")
	}

	return aws.ToString(result.Account), nil
}
