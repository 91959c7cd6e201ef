package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/securityhub"
	shtypes "github.com/aws/aws-sdk-go-v2/service/securityhub/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yairfalse/vahti/pkg/types"
)

// MockSecurityHubClient is a mock implementation of the Security Hub client
type MockSecurityHubClient struct {
	mock.Mock
}

func (m *MockSecurityHubClient) BatchImportFindings(ctx context.Context, params *securityhub.BatchImportFindingsInput, optFns ...func(*securityhub.Options)) (*securityhub.BatchImportFindingsOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*securityhub.BatchImportFindingsOutput), args.Error(1)
}

func testFinding(id string) *types.Finding {
	return &types.Finding{
		SchemaVersion: "2018-10-08",
		ID:            id,
		ProductArn:    "arn:aws:securityhub:us-east-1:1:product/1/default",
		GeneratorID:   "VahtiFileIntegrityMonitor",
		AwsAccountID:  "1",
		Region:        "us-east-1",
		Types:         []string{"Software and Configuration Checks/File Integrity Monitoring"},
		CreatedAt:     "2024-01-01T00:00:00.000Z",
		UpdatedAt:     "2024-01-01T00:00:00.000Z",
		Severity:      types.FindingSeverity{Label: "HIGH"},
		Title:         "File integrity change detected on i-1",
		Description:   "Detected changes in monitored files: 1 created, 0 modified, 0 deleted.",
		Resources:     []types.FindingResource{{Type: "AwsEc2Instance", ID: "i-1"}},
		RecordState:   "ACTIVE",
	}
}

func TestWriterSink(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriterSink(&buf).Send(context.Background(), testFinding("a"), testFinding("b")))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &decoded))
	assert.Equal(t, "a", decoded["Id"])
	assert.Equal(t, "2018-10-08", decoded["SchemaVersion"])
	assert.Equal(t, map[string]interface{}{"Label": "HIGH"}, decoded["Severity"])
}

func TestFileSink_Appends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "findings.jsonl")
	s := NewFileSink(path)

	require.NoError(t, s.Send(context.Background(), testFinding("a")))
	require.NoError(t, s.Send(context.Background(), testFinding("b")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n"))
}

func TestSecurityHubSink_Send(t *testing.T) {
	ctx := context.Background()
	client := new(MockSecurityHubClient)
	client.On("BatchImportFindings", ctx, mock.MatchedBy(func(in *securityhub.BatchImportFindingsInput) bool {
		if len(in.Findings) != 1 {
			return false
		}
		f := in.Findings[0]
		return aws.ToString(f.Id) == "i-1/fim/x" &&
			f.Severity.Label == shtypes.SeverityLabelHigh &&
			aws.ToString(f.Resources[0].Id) == "i-1" &&
			f.RecordState == shtypes.RecordStateActive
	})).Return(&securityhub.BatchImportFindingsOutput{
		FailedCount:  aws.Int32(0),
		SuccessCount: aws.Int32(1),
	}, nil)

	require.NoError(t, NewSecurityHubSink(client).Send(ctx, testFinding("i-1/fim/x")))
	client.AssertExpectations(t)
}

func TestSecurityHubSink_RejectedFinding(t *testing.T) {
	ctx := context.Background()
	client := new(MockSecurityHubClient)
	client.On("BatchImportFindings", ctx, mock.Anything).Return(&securityhub.BatchImportFindingsOutput{
		FailedCount: aws.Int32(1),
		FailedFindings: []shtypes.ImportFindingsError{{
			Id:           aws.String("i-1/fim/x"),
			ErrorCode:    aws.String("InvalidInput"),
			ErrorMessage: aws.String("bad severity"),
		}},
	}, nil)

	err := NewSecurityHubSink(client).Send(ctx, testFinding("i-1/fim/x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "InvalidInput")
}

func TestSecurityHubSink_APIError(t *testing.T) {
	ctx := context.Background()
	client := new(MockSecurityHubClient)
	client.On("BatchImportFindings", ctx, mock.Anything).Return(nil, errors.New("AccessDeniedException"))

	err := NewSecurityHubSink(client).Send(ctx, testFinding("x"))
	assert.ErrorContains(t, err, "AccessDeniedException")
}

func TestSecurityHubSink_Batches(t *testing.T) {
	ctx := context.Background()
	client := new(MockSecurityHubClient)
	client.On("BatchImportFindings", ctx, mock.Anything).
		Return(&securityhub.BatchImportFindingsOutput{FailedCount: aws.Int32(0)}, nil)

	findings := make([]*types.Finding, 150)
	for i := range findings {
		findings[i] = testFinding("f")
	}
	require.NoError(t, NewSecurityHubSink(client).Send(ctx, findings...))
	client.AssertNumberOfCalls(t, "BatchImportFindings", 2)
}
