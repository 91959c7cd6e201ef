package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/Azure/azure-storage-blob-go/azblob"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"google.golang.org/api/option"
)

// Options carries backend clients and credentials for Open.
// Unset clients are created from the environment.
type Options struct {
	AWSConfig  *aws.Config
	S3Client   S3API
	GCSOptions []option.ClientOption
	// AzureCredential defaults to a shared key from AZURE_STORAGE_ACCESS_KEY,
	// or anonymous access when unset
	AzureCredential azblob.Credential
}

// ParseURL splits a store URL into its backend and bucket parts
func ParseURL(rawURL string) (backend string, config map[string]string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", nil, fmt.Errorf("invalid store URL: %w", err)
	}

	config = make(map[string]string)

	switch u.Scheme {
	case "s3":
		// s3://bucket-name
		config["bucket"] = u.Host
		if region := u.Query().Get("region"); region != "" {
			config["region"] = region
		}
		return "s3", config, nil

	case "gs", "gcs":
		// gs://bucket-name
		config["bucket"] = u.Host
		return "gs", config, nil

	case "azurerm":
		// azurerm://storageaccount/container
		config["storage_account_name"] = u.Host
		config["bucket"] = strings.Trim(u.Path, "/")
		return "azurerm", config, nil

	case "file":
		// file:///var/lib/vahti/inventory - the last element is the bucket
		dir := filepath.Clean(u.Host + u.Path)
		config["root"] = filepath.Dir(dir)
		config["bucket"] = filepath.Base(dir)
		return "file", config, nil

	default:
		return "", nil, fmt.Errorf("unsupported store scheme: %q", u.Scheme)
	}
}

// Open connects to the store addressed by rawURL
func Open(ctx context.Context, rawURL string, opts Options) (*Location, error) {
	backend, config, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	if err := validateConfig(backend, config); err != nil {
		return nil, err
	}

	loc := &Location{Backend: backend, Bucket: config["bucket"]}

	switch backend {
	case "s3":
		client := opts.S3Client
		if client == nil {
			cfg, err := awsConfigFor(ctx, opts.AWSConfig, config["region"])
			if err != nil {
				return nil, err
			}
			client = s3.NewFromConfig(cfg)
		}
		loc.Store = NewS3Store(client)

	case "gs":
		store, err := NewGCSStore(ctx, opts.GCSOptions...)
		if err != nil {
			return nil, err
		}
		loc.Store = store

	case "azurerm":
		credential := opts.AzureCredential
		if credential == nil {
			credential, err = azureCredentialFromEnv(config["storage_account_name"])
			if err != nil {
				return nil, err
			}
		}
		loc.Store = NewAzureStore(config["storage_account_name"], credential)

	case "file":
		store, err := NewLocalStore(config["root"])
		if err != nil {
			return nil, err
		}
		loc.Store = store
	}

	return loc, nil
}

func validateConfig(backend string, config map[string]string) error {
	switch backend {
	case "s3", "gs":
		if config["bucket"] == "" {
			return fmt.Errorf("%s bucket is required", backend)
		}
	case "azurerm":
		if config["storage_account_name"] == "" {
			return fmt.Errorf("Azure storage account name is required")
		}
		if config["bucket"] == "" || strings.Contains(config["bucket"], "/") {
			return fmt.Errorf("Azure container name is required")
		}
	case "file":
		if config["bucket"] == "" || config["bucket"] == "/" || config["bucket"] == "." {
			return fmt.Errorf("local store URL must name a directory")
		}
	}
	return nil
}

func awsConfigFor(ctx context.Context, base *aws.Config, region string) (aws.Config, error) {
	if base != nil {
		cfg := base.Copy()
		if region != "" {
			cfg.Region = region
		}
		return cfg, nil
	}

	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cfg, nil
}

func azureCredentialFromEnv(account string) (azblob.Credential, error) {
	key := os.Getenv("AZURE_STORAGE_ACCESS_KEY")
	if key == "" {
		return azblob.NewAnonymousCredential(), nil
	}
	credential, err := azblob.NewSharedKeyCredential(account, key)
	if err != nil {
		return nil, fmt.Errorf("invalid Azure storage credentials: %w", err)
	}
	return credential, nil
}
