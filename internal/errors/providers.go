package errors

import (
	"fmt"
	"strings"
)

// ConfigurationError reports missing or invalid startup configuration
func ConfigurationError(message string) *VahtiError {
	err := New(ErrorTypeConfiguration, ProviderUnknown, message)
	err.WithHelp("vahti config validate")
	return err
}

// MissingSettingError reports a required setting that was not provided
func MissingSettingError(key string, envVars ...string) *VahtiError {
	err := ConfigurationError(fmt.Sprintf("required setting %q is not configured", key))
	for _, env := range envVars {
		err.WithSolutions(fmt.Sprintf(`export %s="..."`, env))
	}
	err.WithSolutions(fmt.Sprintf("set %s in $HOME/.vahti/config.yaml", key))
	return err
}

// SnapshotUnavailableError reports that inventory data could not be retrieved
func SnapshotUnavailableError(provider Provider, location string, cause error) *VahtiError {
	return Wrap(cause, ErrorTypeSnapshotUnavailable, provider,
		fmt.Sprintf("inventory snapshot unavailable at %s", location))
}

// SinkDeliveryError reports that a finding could not be delivered
func SinkDeliveryError(provider Provider, findingID string, cause error) *VahtiError {
	err := Wrap(cause, ErrorTypeSinkDelivery, provider,
		fmt.Sprintf("failed to deliver finding %s", findingID))
	if provider == ProviderAWS {
		err.WithSolutions(
			"Check that Security Hub is enabled in the target region",
			"Verify the role allows securityhub:BatchImportFindings",
		)
	}
	return err
}

// ReclamationError reports that a redundant snapshot version could not be deleted
func ReclamationError(provider Provider, location, versionID string, cause error) *VahtiError {
	return Wrap(cause, ErrorTypeReclamation, provider,
		fmt.Sprintf("failed to reclaim version %s of %s", versionID, location))
}

// AWSCredentialsError creates an AWS credentials error with guidance
func AWSCredentialsError(originalErr error) *VahtiError {
	err := Wrap(originalErr, ErrorTypeAuthentication, ProviderAWS, "AWS credentials not found")
	err.WithCause("No valid credential source detected")

	// Check for specific AWS credential issues
	if originalErr != nil && strings.Contains(originalErr.Error(), "ExpiredToken") {
		err.Message = "AWS credentials expired"
		err.WithCause("Security token has expired")
		err.WithSolutions(
			"Refresh AWS credentials",
			"aws sso login (if using SSO)",
		)
	} else {
		err.WithSolutions(
			`aws configure`,
			`export AWS_ACCESS_KEY_ID=your-key AWS_SECRET_ACCESS_KEY=your-secret`,
			`aws sso login (if using AWS SSO)`,
		)
	}

	err.WithVerify("aws sts get-caller-identity")

	return err
}

// ValidationError reports invalid input to a command
func ValidationError(message string) *VahtiError {
	return New(ErrorTypeValidation, ProviderUnknown, message)
}
