package commands

import (
	"github.com/spf13/cobra"

	"github.com/yairfalse/vahti/internal/monitor"
)

func newCaptureCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capture HOST",
		Short: "Store the live SSM file inventory of a host and check it",
		Long: `Capture reads the current AWS:File inventory of a managed instance from
Systems Manager, writes it to the store as a new snapshot version and
compares it with the version before it.`,
		Example: `  vahti capture i-0abc123 --store s3://inventory-bucket`,
		Args:    cobra.ExactArgs(1),
		RunE:    runCapture,
	}

	return cmd
}

func runCapture(cmd *cobra.Command, args []string) error {
	a, m, err := newMonitor(cmd)
	if err != nil {
		return err
	}

	source, err := a.RecordSource(cmd.Context())
	if err != nil {
		return err
	}

	result, err := m.Capture(cmd.Context(), source, args[0])
	if err != nil {
		return err
	}
	return render(cmd, []*monitor.Result{result})
}
