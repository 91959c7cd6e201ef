package commands

import (
	"sync"
	"time"

	"github.com/spf13/cobra"

	vahtierrors "github.com/yairfalse/vahti/internal/errors"
	"github.com/yairfalse/vahti/internal/monitor"
	"github.com/yairfalse/vahti/internal/storage"
	"github.com/yairfalse/vahti/internal/watcher"
)

func newWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Check new snapshots in a local store as they are written",
		Long: `Watch follows a file:// snapshot store and runs a drift check for every new
snapshot version, the way an S3 ObjectCreated notification triggers the
Lambda function for a bucket.

Press Ctrl+C to stop.`,
		Example: `  vahti watch --store file:///var/lib/vahti/inventory`,
		Args:    cobra.NoArgs,
		RunE:    runWatch,
	}

	cmd.Flags().Duration("debounce", watcher.DefaultDebounce, "wait for writes to settle before checking")

	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	loc, err := a.OpenStore(cmd.Context())
	if err != nil {
		return err
	}
	local, ok := loc.Store.(*storage.LocalStore)
	if !ok {
		return vahtierrors.ValidationError("watch needs a file:// store").
			WithSolutions("Configure S3 event notifications to invoke vahti-lambda for cloud stores")
	}

	m, err := a.MonitorFor(cmd.Context(), loc)
	if err != nil {
		return err
	}

	debounce, _ := cmd.Flags().GetDuration("debounce")

	var mu sync.Mutex
	w, err := watcher.NewWatcher(watcher.WatcherConfig{
		Store:    local,
		Handler:  m,
		Debounce: debounce,
		Logger:   log,
		OnResult: func(result *monitor.Result, err error) {
			if result == nil {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if err := render(cmd, []*monitor.Result{result}); err != nil {
				log.Error("failed to render result", err)
			}
		},
	})
	if err != nil {
		return vahtierrors.ValidationError(err.Error())
	}

	start := time.Now()
	err = w.Start(cmd.Context())
	log.WithField("duration", time.Since(start).Round(time.Second).String()).Info("watch stopped")
	return err
}
