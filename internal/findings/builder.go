package findings

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/yairfalse/vahti/pkg/types"
)

const (
	SchemaVersion   = "2018-10-08"
	FindingType     = "Software and Configuration Checks/File Integrity Monitoring"
	RecordActive    = "ACTIVE"
	TimestampLayout = "2006-01-02T15:04:05.000Z"

	// maxListedPaths caps the paths copied into ProductFields per change class
	maxListedPaths = 20
)

// ErrEmptyChangeSet is returned when a finding is requested for a ChangeSet
// without changes. Callers must check IsEmpty before building.
var ErrEmptyChangeSet = errors.New("cannot build a finding from an empty change set")

// Context carries the account identity stamped on every finding
type Context struct {
	AccountID    string
	Region       string
	GeneratorID  string
	ProductARN   string
	ResourceType string
}

// Builder turns ChangeSets into findings. It performs no I/O.
type Builder struct {
	Context Context
	Clock   func() time.Time
}

// NewBuilder creates a builder, filling defaults for the product ARN,
// resource type and generator id.
func NewBuilder(ctx Context) *Builder {
	if ctx.ProductARN == "" && ctx.AccountID != "" {
		ctx.ProductARN = DefaultProductARN(ctx.Region, ctx.AccountID)
	}
	if ctx.ResourceType == "" {
		ctx.ResourceType = "AwsEc2Instance"
	}
	if ctx.GeneratorID == "" {
		ctx.GeneratorID = "VahtiFileIntegrityMonitor"
	}
	return &Builder{
		Context: ctx,
		Clock:   time.Now,
	}
}

// DefaultProductARN returns the account's default Security Hub product ARN
func DefaultProductARN(region, accountID string) string {
	return fmt.Sprintf("arn:aws:securityhub:%s:%s:product/%s/default", region, accountID, accountID)
}

// FormatTimestamp renders t as a UTC millisecond timestamp with a Z suffix
func FormatTimestamp(t time.Time) string {
	return t.UTC().Truncate(time.Millisecond).Format(TimestampLayout)
}

// Build creates the finding for hostID
func (b *Builder) Build(hostID string, changes types.ChangeSet, severity string) (*types.Finding, error) {
	if changes.IsEmpty() {
		return nil, ErrEmptyChangeSet
	}

	clock := b.Clock
	if clock == nil {
		clock = time.Now
	}
	ts := FormatTimestamp(clock())
	created, modified, deleted := changes.Counts()

	return &types.Finding{
		SchemaVersion: SchemaVersion,
		ID:            fmt.Sprintf("%s/fim/%s", hostID, ts),
		ProductArn:    b.Context.ProductARN,
		GeneratorID:   b.Context.GeneratorID,
		AwsAccountID:  b.Context.AccountID,
		Region:        b.Context.Region,
		Types:         []string{FindingType},
		CreatedAt:     ts,
		UpdatedAt:     ts,
		Severity:      types.FindingSeverity{Label: severity},
		Title:         fmt.Sprintf("File integrity change detected on %s", hostID),
		Description: fmt.Sprintf("Detected changes in monitored files: %d created, %d modified, %d deleted.",
			created, modified, deleted),
		Resources: []types.FindingResource{
			{Type: b.Context.ResourceType, ID: hostID},
		},
		ProductFields: productFields(changes),
		RecordState:   RecordActive,
	}, nil
}

func productFields(changes types.ChangeSet) map[string]string {
	fields := make(map[string]string, 6)
	for _, ct := range []types.ChangeType{types.Created, types.Modified, types.Deleted} {
		paths := changes.ByType(ct)
		fields["vahti/"+ct.String()+"_count"] = strconv.Itoa(len(paths))
		if len(paths) == 0 {
			continue
		}
		if len(paths) > maxListedPaths {
			paths = paths[:maxListedPaths]
		}
		fields["vahti/"+ct.String()] = strings.Join(paths, ",")
	}
	return fields
}
