package app

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/yairfalse/vahti/internal/clients"
	"github.com/yairfalse/vahti/internal/differ"
	vahtierrors "github.com/yairfalse/vahti/internal/errors"
	"github.com/yairfalse/vahti/internal/logger"
	"github.com/yairfalse/vahti/pkg/config"
)

// AppFactory creates and configures the application with all dependencies
type AppFactory struct {
	// Stdout receives findings when the sink type is stdout
	Stdout io.Writer
	// NewAWSClients overrides how AWS clients are created
	NewAWSClients func(ctx context.Context, cc clients.ClientConfig) (*clients.AWSClients, error)
}

// NewAppFactory creates a factory writing to os.Stdout
func NewAppFactory() *AppFactory {
	return &AppFactory{Stdout: os.Stdout}
}

// Create builds a fully configured App instance
func (f *AppFactory) Create(cfg *config.Config, log logger.Logger) (*App, error) {
	if cfg == nil {
		return nil, vahtierrors.ConfigurationError("no configuration loaded")
	}
	if log == nil {
		log = logger.NewNop()
	}

	mode, err := differ.ParseMatchMode(cfg.MatchMode)
	if err != nil {
		return nil, vahtierrors.ConfigurationError(err.Error())
	}

	matcher, dropped := differ.NewPatternMatcher(mode, cfg.Patterns)
	if len(dropped) > 0 {
		log.WithField("patterns", strings.Join(dropped, ", ")).Warn("ignoring invalid critical file patterns")
	}
	if matcher.Len() == 0 {
		log.Warn("no usable critical file patterns configured; no file will be treated as critical")
	}
	log.WithFields(map[string]interface{}{
		"mode":     string(mode),
		"patterns": matcher.Len(),
	}).Debug("loaded critical file patterns")

	stdout := f.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	newAWS := f.NewAWSClients
	if newAWS == nil {
		newAWS = clients.NewAWSClients
	}

	return &App{
		config:        cfg,
		logger:        log,
		matcher:       matcher,
		stdout:        stdout,
		newAWSClients: newAWS,
	}, nil
}
