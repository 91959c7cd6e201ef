package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/yairfalse/vahti/internal/differ"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}

	cmd.AddCommand(newConfigValidateCommand())
	cmd.AddCommand(newConfigShowCommand())

	return cmd
}

func newConfigValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and critical file patterns",
		Long: `Validate loads the configuration from file, environment and flags, then
compiles the critical file patterns. Patterns that cannot be used are listed.`,
		Args: cobra.NoArgs,
		RunE: runConfigValidate,
	}
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			encoder := yaml.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent(2)
			defer encoder.Close()
			return encoder.Encode(v.AllSettings())
		},
	}
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Config file:\t%s\n", orNone(v.ConfigFileUsed()))
	fmt.Fprintf(tw, "Match mode:\t%s\n", a.Matcher().Mode())
	fmt.Fprintf(tw, "Patterns:\t%d of %d usable\n", a.Matcher().Len(), len(cfg.Patterns))
	fmt.Fprintf(tw, "Severity:\t%s\n", cfg.Severity)
	fmt.Fprintf(tw, "Host id source:\t%s\n", cfg.HostIDSource)
	fmt.Fprintf(tw, "Store:\t%s\n", orNone(cfg.Store.URL))
	fmt.Fprintf(tw, "Key template:\t%s\n", cfg.Store.KeyTemplate)
	fmt.Fprintf(tw, "Sink:\t%s\n", sinkDescription())
	tw.Flush()

	_, unusable := differ.NewPatternMatcher(a.Matcher().Mode(), cfg.Patterns)
	if len(unusable) > 0 {
		fmt.Fprintf(out, "\n%s\n", color.YellowString("Ignored patterns:"))
		for _, p := range unusable {
			fmt.Fprintf(out, "  %q\n", p)
		}
	}

	fmt.Fprintf(out, "\n%s\n", color.GreenString("Configuration is valid"))
	return nil
}

func sinkDescription() string {
	if cfg.Sink.Path != "" {
		return cfg.Sink.Type + " (" + cfg.Sink.Path + ")"
	}
	return cfg.Sink.Type
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}
