package commands

import (
	"sync"

	"github.com/spf13/cobra"

	vahtierrors "github.com/yairfalse/vahti/internal/errors"
	"github.com/yairfalse/vahti/internal/monitor"
	"github.com/yairfalse/vahti/internal/scheduler"
)

func newScheduleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule HOST...",
		Short: "Check hosts periodically on a cron schedule",
		Long: `Schedule re-checks the given hosts on a cron schedule. Use it where the
store cannot send object notifications. Overlapping runs are skipped.`,
		Example: `  # Every 15 minutes
  vahti schedule i-0abc123 i-0def456 --cron "@every 15m"

  # At minute 5 of every hour, plus once right away
  vahti schedule i-0abc123 --cron "5 * * * *" --run-now`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSchedule,
	}

	cmd.Flags().String("cron", "@hourly", "cron expression or descriptor")
	cmd.Flags().Bool("run-now", false, "run one check before waiting for the schedule")

	return cmd
}

func runSchedule(cmd *cobra.Command, args []string) error {
	_, m, err := newMonitor(cmd)
	if err != nil {
		return err
	}

	spec, _ := cmd.Flags().GetString("cron")
	runNow, _ := cmd.Flags().GetBool("run-now")

	var mu sync.Mutex
	s, err := scheduler.New(m, scheduler.Config{
		Spec:        spec,
		Hosts:       args,
		Concurrency: cfg.Concurrency,
		Logger:      log,
		OnResults: func(results []*monitor.Result, err error) {
			mu.Lock()
			defer mu.Unlock()
			if err := render(cmd, compact(results)); err != nil {
				log.Error("failed to render results", err)
			}
		},
	})
	if err != nil {
		return vahtierrors.ValidationError(err.Error())
	}

	if runNow {
		s.RunOnce(cmd.Context(), m)
	}
	return s.Start(cmd.Context())
}
