package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	vahtierrors "github.com/yairfalse/vahti/internal/errors"
)

// Config represents the complete Vahti configuration. It is built once at
// process start and treated as read-only afterwards.
type Config struct {
	Patterns     []string      `mapstructure:"patterns"`
	MatchMode    string        `mapstructure:"match_mode"`
	Severity     string        `mapstructure:"severity"`
	HostIDSource string        `mapstructure:"host_id_source"`
	Concurrency  int           `mapstructure:"concurrency"`
	Store        StoreConfig   `mapstructure:"store"`
	Finding      FindingConfig `mapstructure:"finding"`
	Sink         SinkConfig    `mapstructure:"sink"`
	AWS          AWSConfig     `mapstructure:"aws"`
	Logging      LoggingConfig `mapstructure:"logging"`
	Output       OutputConfig  `mapstructure:"output"`
}

// StoreConfig locates the versioned snapshot store
type StoreConfig struct {
	URL         string `mapstructure:"url"`
	KeyTemplate string `mapstructure:"key_template"`
}

// FindingConfig contains the identity stamped on emitted findings
type FindingConfig struct {
	AccountID    string `mapstructure:"account_id"`
	Region       string `mapstructure:"region"`
	GeneratorID  string `mapstructure:"generator_id"`
	ProductARN   string `mapstructure:"product_arn"`
	ResourceType string `mapstructure:"resource_type"`
}

// SinkConfig selects where findings are delivered
type SinkConfig struct {
	Type string `mapstructure:"type"`
	Path string `mapstructure:"path"`
}

// AWSConfig contains AWS client configuration
type AWSConfig struct {
	Region     string        `mapstructure:"region"`
	Profile    string        `mapstructure:"profile"`
	MaxRetries int           `mapstructure:"max_retries"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// OutputConfig contains output formatting configuration
type OutputConfig struct {
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
}

const (
	HostIDFromPayload = "payload"
	HostIDFromRecord  = "record"

	SinkSecurityHub = "securityhub"
	SinkFile        = "file"
	SinkStdout      = "stdout"
)

// NewViper returns a viper instance with defaults, config file search paths
// and environment bindings applied. Callers may bind command-line flags to it
// before handing it to FromViper.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".vahti"))
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Set environment variable support
	v.SetEnvPrefix("VAHTI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Variables used by existing Lambda deployments
	v.BindEnv("patterns", "VAHTI_PATTERNS", "CRITICAL_FILE_PATTERNS", "FILE_PATTERNS")
	v.BindEnv("severity", "VAHTI_SEVERITY", "FINDING_SEVERITY")
	v.BindEnv("match_mode", "VAHTI_MATCH_MODE", "MATCH_MODE")
	v.BindEnv("aws.region", "VAHTI_AWS_REGION", "AWS_REGION")
	v.BindEnv("logging.level", "VAHTI_LOGGING_LEVEL", "LOG_LEVEL")

	return v
}

// Load loads configuration from the given file (or the default search paths
// when empty), the environment and defaults, then validates it.
func Load(cfgFile string) (*Config, error) {
	v := NewViper()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	}
	return FromViper(v)
}

// FromViper reads the config file, if any, unmarshals and validates.
func FromViper(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, vahtierrors.ConfigurationError("failed to read config file").WithCause(err.Error())
		}
		// Config file not found is not an error - environment may carry everything
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, vahtierrors.ConfigurationError("failed to unmarshal config").WithCause(err.Error())
	}

	if !v.IsSet("patterns") {
		config.Patterns = nil
	} else if config.Patterns == nil {
		config.Patterns = []string{}
	}

	if err := config.ExpandPaths(); err != nil {
		return nil, vahtierrors.ConfigurationError("failed to expand config paths").WithCause(err.Error())
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Patterns == nil {
		return vahtierrors.MissingSettingError("patterns", "CRITICAL_FILE_PATTERNS")
	}
	if strings.TrimSpace(c.Severity) == "" {
		return vahtierrors.MissingSettingError("severity", "FINDING_SEVERITY")
	}

	switch strings.ToLower(c.MatchMode) {
	case "suffix", "regex":
	default:
		return vahtierrors.ConfigurationError(fmt.Sprintf("invalid match_mode %q", c.MatchMode)).
			WithSolutions("use suffix or regex")
	}

	switch c.HostIDSource {
	case HostIDFromPayload, HostIDFromRecord:
	default:
		return vahtierrors.ConfigurationError(fmt.Sprintf("invalid host_id_source %q", c.HostIDSource)).
			WithSolutions("use payload or record")
	}

	switch c.Sink.Type {
	case SinkSecurityHub, SinkStdout:
	case SinkFile:
		if c.Sink.Path == "" {
			return vahtierrors.MissingSettingError("sink.path", "VAHTI_SINK_PATH")
		}
	default:
		return vahtierrors.ConfigurationError(fmt.Sprintf("invalid sink type %q", c.Sink.Type)).
			WithSolutions("use securityhub, file or stdout")
	}

	if c.Concurrency <= 0 {
		return vahtierrors.ConfigurationError("concurrency must be positive")
	}

	return nil
}

// RequireStore checks that a snapshot store is configured
func (c *Config) RequireStore() error {
	if strings.TrimSpace(c.Store.URL) == "" {
		return vahtierrors.MissingSettingError("store.url", "VAHTI_STORE_URL")
	}
	return nil
}

// ObjectKey renders the store key holding the inventory of hostID
func (c *Config) ObjectKey(hostID string) string {
	return strings.NewReplacer(
		"{host}", hostID,
		"{account}", c.Finding.AccountID,
		"{region}", c.Finding.Region,
	).Replace(c.Store.KeyTemplate)
}

// ExpandPaths expands home directory paths
func (c *Config) ExpandPaths() error {
	var err error
	c.Sink.Path, err = expandPath(c.Sink.Path)
	if err != nil {
		return fmt.Errorf("failed to expand sink path: %w", err)
	}

	if strings.HasPrefix(c.Store.URL, "file://~") {
		dir, err := expandPath(strings.TrimPrefix(c.Store.URL, "file://"))
		if err != nil {
			return fmt.Errorf("failed to expand store url: %w", err)
		}
		c.Store.URL = "file://" + dir
	}

	return nil
}

// expandPath expands ~ to home directory
func expandPath(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path, err
	}

	if len(path) == 1 {
		return home, nil
	}

	return filepath.Join(home, path[1:]), nil
}
