package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
)

// DisplayError formats and displays an error on stderr
func DisplayError(err error) {
	FprintError(os.Stderr, err, noColorRequested())
}

// FprintError writes a formatted error to w
func FprintError(w io.Writer, err error, noColor bool) {
	color.NoColor = noColor

	var vErr *VahtiError
	if !stderrors.As(err, &vErr) {
		// For non-Vahti errors, display a simple error message
		fmt.Fprintf(w, "%s\n", color.RedString("Error: %v", err))
		return
	}

	// Choose color based on error type
	colorFunc := getErrorStyle(vErr.Type)

	// Error header
	fmt.Fprintf(w, "\n%s\n", colorFunc(vErr.Message))

	if vErr.Cause != "" {
		fmt.Fprintf(w, "   %s %s\n", color.YellowString("Cause:"), color.HiBlackString(vErr.Cause))
	}

	if vErr.Err != nil {
		fmt.Fprintf(w, "   %s %s\n", color.YellowString("Detail:"), color.HiBlackString(vErr.Err.Error()))
	}

	// Solutions with numbered list
	if len(vErr.Solutions) > 0 {
		fmt.Fprintf(w, "\n   %s\n", color.GreenString("Solutions:"))
		for i, solution := range vErr.Solutions {
			fmt.Fprintf(w, "   %s %s\n", color.HiBlackString(fmt.Sprintf("%d.", i+1)), solution)
		}
	}

	if vErr.Verify != "" {
		fmt.Fprintf(w, "\n   %s %s\n", color.BlueString("Verify:"), color.HiWhiteString(vErr.Verify))
	}

	if vErr.Help != "" {
		fmt.Fprintf(w, "   %s %s\n", color.MagentaString("Help:"), color.HiWhiteString(vErr.Help))
	}

	fmt.Fprintln(w)
}

// getErrorStyle returns the appropriate color function for an error type
func getErrorStyle(errType ErrorType) func(format string, a ...interface{}) string {
	switch errType {
	case ErrorTypeConfiguration, ErrorTypeValidation:
		return color.YellowString
	case ErrorTypeSnapshotUnavailable:
		return color.MagentaString
	case ErrorTypeSinkDelivery:
		return color.CyanString
	default:
		return color.RedString
	}
}

// FormatErrorWithContext formats an error without color for CI/CD logs
func FormatErrorWithContext(err error, context map[string]string) string {
	var sb strings.Builder

	var vErr *VahtiError
	if !stderrors.As(err, &vErr) {
		sb.WriteString(fmt.Sprintf("Error: %v\n", err))
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("Error: %s\n", vErr.Message))
	sb.WriteString(fmt.Sprintf("Type: %s/%s\n", vErr.Type, vErr.Provider))

	if vErr.Cause != "" {
		sb.WriteString(fmt.Sprintf("Cause: %s\n", vErr.Cause))
	}
	if vErr.Err != nil {
		sb.WriteString(fmt.Sprintf("Detail: %v\n", vErr.Err))
	}

	if len(context) > 0 {
		keys := make([]string, 0, len(context))
		for k := range context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteString("\nContext:\n")
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("  %s: %s\n", k, context[k]))
		}
	}

	if len(vErr.Solutions) > 0 {
		sb.WriteString("\nSolutions:\n")
		for i, solution := range vErr.Solutions {
			sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, solution))
		}
	}

	if vErr.Verify != "" {
		sb.WriteString(fmt.Sprintf("\nVerify: %s\n", vErr.Verify))
	}

	if vErr.Help != "" {
		sb.WriteString(fmt.Sprintf("Help: %s\n", vErr.Help))
	}

	return sb.String()
}

// DisplayWarning shows a warning message with appropriate formatting
func DisplayWarning(message string) {
	color.NoColor = noColorRequested()
	fmt.Fprintf(os.Stderr, "Warning: %s\n", color.YellowString(message))
}

func noColorRequested() bool {
	return os.Getenv("NO_COLOR") != "" || os.Getenv("VAHTI_NO_COLOR") != ""
}
