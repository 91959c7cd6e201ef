package inventory

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/yairfalse/vahti/pkg/types"
)

// FileInventoryType is the SSM inventory type holding file metadata
const FileInventoryType = "AWS:File"

// SSMAPI is the subset of the SSM client used by SSMSource
type SSMAPI interface {
	ListInventoryEntries(ctx context.Context, params *ssm.ListInventoryEntriesInput, optFns ...func(*ssm.Options)) (*ssm.ListInventoryEntriesOutput, error)
}

// SSMSource reads the live file inventory of a managed instance
type SSMSource struct {
	client SSMAPI
}

// NewSSMSource creates a source backed by client
func NewSSMSource(client SSMAPI) *SSMSource {
	return &SSMSource{client: client}
}

// Records returns every AWS:File entry of hostID. Each record is stamped with
// hostID as its resource id.
func (s *SSMSource) Records(ctx context.Context, hostID string) ([]types.InventoryRecord, error) {
	var records []types.InventoryRecord
	var nextToken *string

	for {
		out, err := s.client.ListInventoryEntries(ctx, &ssm.ListInventoryEntriesInput{
			InstanceId: aws.String(hostID),
			TypeName:   aws.String(FileInventoryType),
			NextToken:  nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list %s inventory for %s: %w", FileInventoryType, hostID, err)
		}

		for _, entry := range out.Entries {
			record := types.RecordFromEntry(entry)
			if record.ResourceID == "" {
				record.ResourceID = hostID
			}
			records = append(records, record)
		}

		if aws.ToString(out.NextToken) == "" {
			break
		}
		nextToken = out.NextToken
	}

	return records, nil
}
