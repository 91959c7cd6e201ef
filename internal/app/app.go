package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/yairfalse/vahti/internal/clients"
	"github.com/yairfalse/vahti/internal/differ"
	vahtierrors "github.com/yairfalse/vahti/internal/errors"
	"github.com/yairfalse/vahti/internal/findings"
	"github.com/yairfalse/vahti/internal/inventory"
	"github.com/yairfalse/vahti/internal/logger"
	"github.com/yairfalse/vahti/internal/monitor"
	"github.com/yairfalse/vahti/internal/sink"
	"github.com/yairfalse/vahti/internal/storage"
	"github.com/yairfalse/vahti/pkg/config"
)

// App holds the configured collaborators shared by the CLI commands and the
// Lambda handler. AWS clients are created on first use so that local-only
// setups never need credentials.
type App struct {
	config  *config.Config
	logger  logger.Logger
	matcher *differ.PatternMatcher
	stdout  io.Writer

	newAWSClients func(ctx context.Context, cc clients.ClientConfig) (*clients.AWSClients, error)

	awsOnce sync.Once
	aws     *clients.AWSClients
	awsErr  error
}

// Config returns the configuration the app was created with
func (a *App) Config() *config.Config {
	return a.config
}

// Logger returns the app logger
func (a *App) Logger() logger.Logger {
	return a.logger
}

// Matcher returns the critical path matcher
func (a *App) Matcher() *differ.PatternMatcher {
	return a.matcher
}

// AWS returns the AWS clients, creating them on first call
func (a *App) AWS(ctx context.Context) (*clients.AWSClients, error) {
	a.awsOnce.Do(func() {
		a.aws, a.awsErr = a.newAWSClients(ctx, clients.ClientConfig{
			Region:     a.config.AWS.Region,
			Profile:    a.config.AWS.Profile,
			MaxRetries: a.config.AWS.MaxRetries,
			Timeout:    a.config.AWS.Timeout,
		})
	})
	return a.aws, a.awsErr
}

// FindingContext returns the finding identity. A missing account id or
// region is resolved from the AWS credentials when findings go to Security
// Hub or the store key template needs them.
func (a *App) FindingContext(ctx context.Context) (findings.Context, error) {
	fc := findings.Context{
		AccountID:    a.config.Finding.AccountID,
		Region:       a.config.Finding.Region,
		GeneratorID:  a.config.Finding.GeneratorID,
		ProductARN:   a.config.Finding.ProductARN,
		ResourceType: a.config.Finding.ResourceType,
	}

	template := a.config.Store.KeyTemplate
	needAccount := a.config.Sink.Type == config.SinkSecurityHub || strings.Contains(template, "{account}")
	needRegion := a.config.Sink.Type == config.SinkSecurityHub || strings.Contains(template, "{region}")

	if (fc.AccountID == "" && needAccount) || (fc.Region == "" && needRegion) {
		awsClients, err := a.AWS(ctx)
		if err != nil {
			return fc, err
		}
		if fc.Region == "" {
			fc.Region = awsClients.GetRegion()
		}
		if fc.AccountID == "" && needAccount {
			account, err := awsClients.CallerAccount(ctx)
			if err != nil {
				return fc, err
			}
			fc.AccountID = account
			a.logger.WithField("account_id", account).Debug("resolved account from caller identity")
		}
	}

	return fc, nil
}

// OpenStore connects to the configured snapshot store
func (a *App) OpenStore(ctx context.Context) (*storage.Location, error) {
	if err := a.config.RequireStore(); err != nil {
		return nil, err
	}

	backend, _, err := storage.ParseURL(a.config.Store.URL)
	if err != nil {
		return nil, vahtierrors.ConfigurationError("invalid store url").WithCause(err.Error())
	}

	var opts storage.Options
	if backend == "s3" {
		awsClients, err := a.AWS(ctx)
		if err != nil {
			return nil, err
		}
		opts.AWSConfig = &awsClients.Config
	}

	loc, err := storage.Open(ctx, a.config.Store.URL, opts)
	if err != nil {
		return nil, vahtierrors.SnapshotUnavailableError(ProviderFor(backend), a.config.Store.URL, err)
	}
	return loc, nil
}

// NewSink creates the configured finding sink
func (a *App) NewSink(ctx context.Context) (sink.Sink, error) {
	switch a.config.Sink.Type {
	case config.SinkStdout:
		return sink.NewWriterSink(a.stdout), nil
	case config.SinkFile:
		return sink.NewFileSink(a.config.Sink.Path), nil
	case config.SinkSecurityHub:
		awsClients, err := a.AWS(ctx)
		if err != nil {
			return nil, err
		}
		return sink.NewSecurityHubSink(awsClients.SecurityHub), nil
	default:
		return nil, vahtierrors.ConfigurationError(fmt.Sprintf("invalid sink type %q", a.config.Sink.Type))
	}
}

// NewMonitor wires a monitor to the configured store, sink and finding
// identity
func (a *App) NewMonitor(ctx context.Context) (*monitor.Monitor, error) {
	loc, err := a.OpenStore(ctx)
	if err != nil {
		return nil, err
	}
	return a.MonitorFor(ctx, loc)
}

// MonitorFor wires a monitor to an already opened store
func (a *App) MonitorFor(ctx context.Context, loc *storage.Location) (*monitor.Monitor, error) {
	fc, err := a.FindingContext(ctx)
	if err != nil {
		return nil, err
	}

	out, err := a.NewSink(ctx)
	if err != nil {
		return nil, err
	}

	// Key templates may reference the resolved account and region
	keyConfig := *a.config
	keyConfig.Finding.AccountID = fc.AccountID
	keyConfig.Finding.Region = fc.Region

	return monitor.New(monitor.Options{
		Store:        loc.Store,
		Bucket:       loc.Bucket,
		Provider:     ProviderFor(loc.Backend),
		KeyFor:       keyConfig.ObjectKey,
		Matcher:      a.matcher,
		Sink:         out,
		Builder:      findings.NewBuilder(fc),
		Severity:     a.config.Severity,
		HostIDSource: a.config.HostIDSource,
		Logger:       a.logger,
	})
}

// RecordSource returns the live inventory source backed by SSM
func (a *App) RecordSource(ctx context.Context) (monitor.RecordSource, error) {
	awsClients, err := a.AWS(ctx)
	if err != nil {
		return nil, err
	}
	return inventory.NewSSMSource(awsClients.SSM), nil
}

// ProviderFor maps a store backend to the provider reported in errors
func ProviderFor(backend string) vahtierrors.Provider {
	switch backend {
	case "s3":
		return vahtierrors.ProviderAWS
	case "gs":
		return vahtierrors.ProviderGCP
	case "azurerm":
		return vahtierrors.ProviderAzure
	case "file":
		return vahtierrors.ProviderLocal
	default:
		return vahtierrors.ProviderUnknown
	}
}
