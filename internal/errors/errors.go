package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorType represents the category of error
type ErrorType string

const (
	ErrorTypeConfiguration       ErrorType = "Configuration"
	ErrorTypeSnapshotUnavailable ErrorType = "SnapshotUnavailable"
	ErrorTypeSinkDelivery        ErrorType = "SinkDelivery"
	ErrorTypeReclamation         ErrorType = "Reclamation"
	ErrorTypeAuthentication      ErrorType = "Authentication"
	ErrorTypeValidation          ErrorType = "Validation"
)

// Provider represents the backend an error originated from
type Provider string

const (
	ProviderAWS     Provider = "AWS"
	ProviderGCP     Provider = "GCP"
	ProviderAzure   Provider = "Azure"
	ProviderLocal   Provider = "Local"
	ProviderUnknown Provider = "Unknown"
)

// VahtiError is a categorized error with actionable guidance
type VahtiError struct {
	Type      ErrorType
	Provider  Provider
	Message   string
	Cause     string
	Solutions []string
	Verify    string
	Help      string
	Err       error
}

// Error implements the error interface
func (e *VahtiError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)
	if e.Cause != "" {
		sb.WriteString(" (")
		sb.WriteString(e.Cause)
		sb.WriteString(")")
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Unwrap returns the wrapped error
func (e *VahtiError) Unwrap() error {
	return e.Err
}

// Format implements fmt.Formatter for custom formatting
func (e *VahtiError) Format(f fmt.State, verb rune) {
	switch verb {
	case 's':
		fmt.Fprintf(f, "%s", e.Error())
	case 'v':
		if f.Flag('+') {
			// Verbose mode includes type and provider
			fmt.Fprintf(f, "[%s/%s] %s", e.Type, e.Provider, e.Error())
		} else {
			fmt.Fprintf(f, "%s", e.Error())
		}
	case 'q':
		fmt.Fprintf(f, "%q", e.Error())
	}
}

// New creates a new VahtiError
func New(errType ErrorType, provider Provider, message string) *VahtiError {
	return &VahtiError{
		Type:     errType,
		Provider: provider,
		Message:  message,
	}
}

// Wrap creates a VahtiError around an underlying error
func Wrap(err error, errType ErrorType, provider Provider, message string) *VahtiError {
	e := New(errType, provider, message)
	e.Err = err
	return e
}

// WithCause adds cause information
func (e *VahtiError) WithCause(cause string) *VahtiError {
	e.Cause = cause
	return e
}

// WithSolutions adds solution steps
func (e *VahtiError) WithSolutions(solutions ...string) *VahtiError {
	e.Solutions = append(e.Solutions, solutions...)
	return e
}

// WithVerify adds verification command
func (e *VahtiError) WithVerify(verify string) *VahtiError {
	e.Verify = verify
	return e
}

// WithHelp adds help command
func (e *VahtiError) WithHelp(help string) *VahtiError {
	e.Help = help
	return e
}

// TypeOf returns the error type of the first VahtiError in err's chain
func TypeOf(err error) (ErrorType, bool) {
	var vErr *VahtiError
	if stderrors.As(err, &vErr) {
		return vErr.Type, true
	}
	return "", false
}

// IsType reports whether err's chain holds a VahtiError of the given type
func IsType(err error, errType ErrorType) bool {
	t, ok := TypeOf(err)
	return ok && t == errType
}

// IsUserError checks if error requires user action
func IsUserError(err error) bool {
	var vErr *VahtiError
	return stderrors.As(err, &vErr)
}

// GetExitCode returns appropriate exit code for error type
func GetExitCode(err error) int {
	errType, ok := TypeOf(err)
	if !ok {
		return 1 // Generic error
	}

	switch errType {
	case ErrorTypeAuthentication:
		return 77 // EX_NOPERM
	case ErrorTypeConfiguration, ErrorTypeValidation:
		return 78 // EX_CONFIG
	case ErrorTypeSnapshotUnavailable:
		return 66 // EX_NOINPUT
	case ErrorTypeSinkDelivery:
		return 69 // EX_UNAVAILABLE
	default:
		return 1
	}
}
