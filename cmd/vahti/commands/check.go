package commands

import (
	"github.com/spf13/cobra"

	"github.com/yairfalse/vahti/internal/monitor"
)

func newCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check HOST...",
		Short: "Compare the two newest snapshots of one or more hosts",
		Long: `Check loads the newest and the second newest inventory snapshot of each
host from the store and compares their critical files.

A change produces a finding that is sent to the configured sink. When nothing
critical changed, the older snapshot version is reclaimed.`,
		Example: `  # Check a single host
  vahti check i-0abc123

  # Check several hosts, four at a time, as JSON
  vahti check i-0abc123 i-0def456 --concurrency 4 -o json`,
		Args: cobra.MinimumNArgs(1),
		RunE: runCheck,
	}

	cmd.Flags().Int("concurrency", 0, "hosts checked in parallel (default from config)")

	return cmd
}

func runCheck(cmd *cobra.Command, args []string) error {
	_, m, err := newMonitor(cmd)
	if err != nil {
		return err
	}

	concurrency, _ := cmd.Flags().GetInt("concurrency")
	if concurrency <= 0 {
		concurrency = cfg.Concurrency
	}

	var results []*monitor.Result
	if len(args) == 1 {
		result, err := m.CheckHost(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		results = []*monitor.Result{result}
	} else {
		results, err = m.CheckHosts(cmd.Context(), args, concurrency)
		if err != nil {
			// Show what did complete before failing
			render(cmd, compact(results))
			return err
		}
	}

	return render(cmd, results)
}

// compact drops the slots of checks that failed
func compact(results []*monitor.Result) []*monitor.Result {
	out := make([]*monitor.Result, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}
