package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	vahtierrors "github.com/yairfalse/vahti/internal/errors"
	"github.com/yairfalse/vahti/internal/monitor"
)

func newEventCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event",
		Short: "Handle a trigger payload",
		Long: `Event handles the same payloads the Lambda function receives: an S3
event notification for newly written snapshot versions, or a direct
invocation naming a host such as {"InstanceId": "i-0abc123"}.`,
		Example: `  # Replay a saved S3 notification
  vahti event --file notification.json

  # Read the payload from stdin
  echo '{"InstanceId": "i-0abc123"}' | vahti event --file -`,
		Args: cobra.NoArgs,
		RunE: runEvent,
	}

	cmd.Flags().StringP("file", "f", "-", "payload file, - for stdin")

	return cmd
}

func runEvent(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("file")

	data, err := readPayload(cmd, path)
	if err != nil {
		return vahtierrors.ValidationError(fmt.Sprintf("failed to read payload: %v", err))
	}

	inv, err := monitor.ParseInvocation(data)
	if err != nil {
		return vahtierrors.ValidationError(err.Error())
	}

	_, m, err := newMonitor(cmd)
	if err != nil {
		return err
	}

	results, err := m.Handle(cmd.Context(), inv)
	if err != nil {
		render(cmd, compact(results))
		return err
	}
	return render(cmd, results)
}

func readPayload(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" || path == "" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}
