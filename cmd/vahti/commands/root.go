package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yairfalse/vahti/internal/app"
	vahtierrors "github.com/yairfalse/vahti/internal/errors"
	"github.com/yairfalse/vahti/internal/logger"
	"github.com/yairfalse/vahti/internal/monitor"
	"github.com/yairfalse/vahti/internal/output"
	"github.com/yairfalse/vahti/pkg/config"
)

// skipConfig marks commands that run without a loaded configuration
const skipConfig = "vahti/skip-config"

var (
	cfgFile string
	v       *viper.Viper
	cfg     *config.Config
	log     logger.Logger

	// appFactory is replaced in tests
	appFactory = app.NewAppFactory()
)

// NewRootCommand builds the vahti command tree
func NewRootCommand() *cobra.Command {
	v = config.NewViper()
	cfgFile = ""
	cfg = nil
	log = nil

	rootCmd := &cobra.Command{
		Use:   "vahti",
		Short: "File integrity drift detection for inventory snapshots",
		Long: `Vahti watches versioned file inventory snapshots of your hosts.

Every time a new snapshot lands in the store, vahti compares it with the
snapshot before it. Changes to critical files (created, modified or deleted)
become a finding; an unchanged snapshot lets the older version be reclaimed.

QUICK START:
  vahti check i-0abc123          # Compare the two newest snapshots of a host
  vahti event --file event.json  # Replay an S3 ObjectCreated notification
  vahti diff old.json new.json   # Compare two inventory files offline
  vahti watch                    # Check new snapshots in a local store as they land`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipConfig] == "true" {
				return nil
			}
			return initConfig(cmd)
		},
	}

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.vahti/config.yaml)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	flags.StringP("output", "o", "table", "output format (table, json, yaml, unified, name-only)")
	flags.Bool("no-color", false, "disable colored output")
	flags.String("store", "", "snapshot store url (s3://bucket, gs://bucket, azurerm://account/container, file:///path/bucket)")
	flags.String("key-template", "", "store key of a host inventory; {host}, {account} and {region} are replaced")
	flags.StringSlice("patterns", nil, "critical file patterns")
	flags.String("match-mode", "", "pattern match mode (suffix, regex)")
	flags.String("severity", "", "severity label of emitted findings")
	flags.String("sink", "", "finding sink (securityhub, file, stdout)")
	flags.String("sink-path", "", "file written by the file sink")
	flags.String("region", "", "AWS region")
	flags.String("profile", "", "AWS profile")

	// Bind flags to viper
	v.BindPFlag("logging.level", flags.Lookup("log-level"))
	v.BindPFlag("logging.format", flags.Lookup("log-format"))
	v.BindPFlag("output.format", flags.Lookup("output"))
	v.BindPFlag("output.no_color", flags.Lookup("no-color"))
	v.BindPFlag("store.url", flags.Lookup("store"))
	v.BindPFlag("store.key_template", flags.Lookup("key-template"))
	v.BindPFlag("patterns", flags.Lookup("patterns"))
	v.BindPFlag("match_mode", flags.Lookup("match-mode"))
	v.BindPFlag("severity", flags.Lookup("severity"))
	v.BindPFlag("sink.type", flags.Lookup("sink"))
	v.BindPFlag("sink.path", flags.Lookup("sink-path"))
	v.BindPFlag("aws.region", flags.Lookup("region"))
	v.BindPFlag("aws.profile", flags.Lookup("profile"))

	// Add subcommands
	rootCmd.AddCommand(newCheckCommand())
	rootCmd.AddCommand(newEventCommand())
	rootCmd.AddCommand(newCaptureCommand())
	rootCmd.AddCommand(newDiffCommand())
	rootCmd.AddCommand(newWatchCommand())
	rootCmd.AddCommand(newScheduleCommand())
	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// Execute runs the root command and exits with a code derived from the error
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCommand().ExecuteContext(ctx)
	stop()
	if errors.Is(err, ErrDriftDetected) {
		os.Exit(1)
	}
	if err != nil {
		vahtierrors.DisplayError(err)
		os.Exit(vahtierrors.GetExitCode(err))
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig(cmd *cobra.Command) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	}

	loaded, err := config.FromViper(v)
	if err != nil {
		return err
	}

	l, err := logger.New(logger.Options{
		Level:  loaded.Logging.Level,
		Format: loaded.Logging.Format,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return vahtierrors.ConfigurationError("invalid logging settings").WithCause(err.Error())
	}

	cfg = loaded
	log = l
	return nil
}

// newApp wires the application for the current command
func newApp(cmd *cobra.Command) (*app.App, error) {
	appFactory.Stdout = cmd.OutOrStdout()
	return appFactory.Create(cfg, log)
}

// newMonitor wires a monitor for the current command
func newMonitor(cmd *cobra.Command) (*app.App, *monitor.Monitor, error) {
	a, err := newApp(cmd)
	if err != nil {
		return nil, nil, err
	}
	m, err := a.NewMonitor(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	return a, m, nil
}

// render writes results in the configured output format
func render(cmd *cobra.Command, results []*monitor.Result) error {
	formatter, err := output.NewFormatter(cfg.Output.Format, cfg.Output.NoColor)
	if err != nil {
		return vahtierrors.ValidationError(err.Error())
	}
	return formatter.Format(cmd.OutOrStdout(), results)
}
