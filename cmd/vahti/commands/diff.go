package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/yairfalse/vahti/internal/differ"
	vahtierrors "github.com/yairfalse/vahti/internal/errors"
	"github.com/yairfalse/vahti/internal/inventory"
	"github.com/yairfalse/vahti/internal/monitor"
	"github.com/yairfalse/vahti/pkg/types"
)

// ErrDriftDetected is returned by diff --exit-code when critical files changed
var ErrDriftDetected = errors.New("critical file drift detected")

func newDiffCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff PREVIOUS CURRENT",
		Short: "Compare two inventory files offline",
		Long: `Diff compares two inventory captures on disk using the configured critical
file patterns. Nothing is sent to the sink and nothing is reclaimed.

Both JSON lines and a single JSON array of records are accepted.`,
		Example: `  # See what changed, git diff style
  vahti diff before.json after.json -o unified

  # Just list changed paths
  vahti diff before.json after.json -o name-only

  # Use in scripts: exit 1 when critical files changed
  vahti diff before.json after.json --exit-code > /dev/null || echo "drift!"`,
		Args: cobra.ExactArgs(2),
		RunE: runDiff,
	}

	cmd.Flags().Bool("exit-code", false, "exit with status 1 when critical files changed")

	return cmd
}

func runDiff(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	previous, err := loadSnapshotFile(args[0])
	if err != nil {
		return err
	}
	current, err := loadSnapshotFile(args[1])
	if err != nil {
		return err
	}

	engine := differ.NewDiffEngine(a.Matcher(), a.Logger())
	result := &monitor.Result{
		HostID:          hostFromFile(args[1]),
		PreviousVersion: args[0],
		CurrentVersion:  args[1],
		Changes:         engine.Diff(previous, current),
		Previous:        previous,
		Current:         current,
	}

	if err := render(cmd, []*monitor.Result{result}); err != nil {
		return err
	}

	exitCode, _ := cmd.Flags().GetBool("exit-code")
	if exitCode && !result.Changes.IsEmpty() {
		return ErrDriftDetected
	}
	return nil
}

func loadSnapshotFile(path string) (types.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.Snapshot{}, vahtierrors.SnapshotUnavailableError(vahtierrors.ProviderLocal, path, err)
	}
	defer f.Close()

	records, stats, err := inventory.ParseRecords(f)
	if err != nil {
		return types.Snapshot{}, vahtierrors.SnapshotUnavailableError(vahtierrors.ProviderLocal, path, err)
	}
	if stats.Skipped > 0 {
		log.WithFields(map[string]interface{}{
			"file":    path,
			"skipped": stats.Skipped,
		}).Warn(fmt.Sprintf("skipped %d malformed inventory lines", stats.Skipped))
	}
	return types.NewSnapshot(records), nil
}

func hostFromFile(path string) string {
	return monitor.HostIDFromKey(filepath.Base(path))
}
