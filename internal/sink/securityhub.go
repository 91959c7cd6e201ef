package sink

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/securityhub"
	shtypes "github.com/aws/aws-sdk-go-v2/service/securityhub/types"
	"github.com/yairfalse/vahti/pkg/types"
)

// maxBatchSize is the BatchImportFindings limit per request
const maxBatchSize = 100

// SecurityHubAPI is the subset of the Security Hub client used by the sink
type SecurityHubAPI interface {
	BatchImportFindings(ctx context.Context, params *securityhub.BatchImportFindingsInput, optFns ...func(*securityhub.Options)) (*securityhub.BatchImportFindingsOutput, error)
}

// SecurityHubSink imports findings into AWS Security Hub
type SecurityHubSink struct {
	client SecurityHubAPI
}

// NewSecurityHubSink creates a sink importing through client
func NewSecurityHubSink(client SecurityHubAPI) *SecurityHubSink {
	return &SecurityHubSink{client: client}
}

// Send imports findings in batches. Any finding Security Hub rejects fails
// the whole send.
func (s *SecurityHubSink) Send(ctx context.Context, findings ...*types.Finding) error {
	for start := 0; start < len(findings); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(findings) {
			end = len(findings)
		}

		batch := make([]shtypes.AwsSecurityFinding, 0, end-start)
		for _, f := range findings[start:end] {
			batch = append(batch, ToSecurityHub(f))
		}

		out, err := s.client.BatchImportFindings(ctx, &securityhub.BatchImportFindingsInput{
			Findings: batch,
		})
		if err != nil {
			return fmt.Errorf("BatchImportFindings failed: %w", err)
		}

		if aws.ToInt32(out.FailedCount) > 0 {
			failed := make([]string, 0, len(out.FailedFindings))
			for _, ff := range out.FailedFindings {
				failed = append(failed, fmt.Sprintf("%s (%s: %s)",
					aws.ToString(ff.Id), aws.ToString(ff.ErrorCode), aws.ToString(ff.ErrorMessage)))
			}
			return fmt.Errorf("%d finding(s) rejected: %s", aws.ToInt32(out.FailedCount), strings.Join(failed, "; "))
		}
	}
	return nil
}

// ToSecurityHub converts a finding to the Security Hub SDK shape
func ToSecurityHub(f *types.Finding) shtypes.AwsSecurityFinding {
	resources := make([]shtypes.Resource, 0, len(f.Resources))
	for _, r := range f.Resources {
		resources = append(resources, shtypes.Resource{
			Id:   aws.String(r.ID),
			Type: aws.String(r.Type),
		})
	}

	finding := shtypes.AwsSecurityFinding{
		SchemaVersion: aws.String(f.SchemaVersion),
		Id:            aws.String(f.ID),
		ProductArn:    aws.String(f.ProductArn),
		GeneratorId:   aws.String(f.GeneratorID),
		AwsAccountId:  aws.String(f.AwsAccountID),
		Types:         f.Types,
		CreatedAt:     aws.String(f.CreatedAt),
		UpdatedAt:     aws.String(f.UpdatedAt),
		Severity:      &shtypes.Severity{Label: shtypes.SeverityLabel(f.Severity.Label)},
		Title:         aws.String(f.Title),
		Description:   aws.String(f.Description),
		Resources:     resources,
		ProductFields: f.ProductFields,
		RecordState:   shtypes.RecordState(f.RecordState),
	}
	if f.Region != "" {
		finding.Region = aws.String(f.Region)
	}
	return finding
}
