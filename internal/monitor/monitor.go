package monitor

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yairfalse/vahti/internal/differ"
	vahtierrors "github.com/yairfalse/vahti/internal/errors"
	"github.com/yairfalse/vahti/internal/findings"
	"github.com/yairfalse/vahti/internal/inventory"
	"github.com/yairfalse/vahti/internal/logger"
	"github.com/yairfalse/vahti/internal/retention"
	"github.com/yairfalse/vahti/internal/sink"
	"github.com/yairfalse/vahti/internal/storage"
	"github.com/yairfalse/vahti/pkg/types"
)

const (
	HostIDFromPayload = "payload"
	HostIDFromRecord  = "record"

	SkippedNoPrevious     = "no previous snapshot"
	SkippedNoSnapshot     = "no snapshot"
	SkippedUnknownVersion = "version not found in history"
)

// Options wires a Monitor to its collaborators
type Options struct {
	Store        storage.Store
	Bucket       string
	Provider     vahtierrors.Provider
	KeyFor       func(hostID string) string
	Matcher      differ.Matcher
	Sink         sink.Sink
	Builder      *findings.Builder
	Advisor      *retention.Advisor
	Severity     string
	HostIDSource string
	Logger       logger.Logger
}

// Monitor runs one drift check per trigger: load two snapshot versions,
// diff them, then either emit a finding or reclaim the older version.
// A Monitor holds no per-check state and may serve concurrent checks.
type Monitor struct {
	store        storage.Store
	bucket       string
	provider     vahtierrors.Provider
	keyFor       func(string) string
	engine       *differ.DiffEngine
	sink         sink.Sink
	builder      *findings.Builder
	advisor      *retention.Advisor
	severity     string
	hostIDSource string
	log          logger.Logger
}

// Result describes the outcome of one check
type Result struct {
	InvocationID    string               `json:"invocation_id" yaml:"invocation_id"`
	HostID          string               `json:"host_id" yaml:"host_id"`
	Bucket          string               `json:"bucket" yaml:"bucket"`
	Key             string               `json:"key" yaml:"key"`
	CurrentVersion  string               `json:"current_version,omitempty" yaml:"current_version,omitempty"`
	PreviousVersion string               `json:"previous_version,omitempty" yaml:"previous_version,omitempty"`
	Changes         types.ChangeSet      `json:"changes" yaml:"changes"`
	Finding         *types.Finding       `json:"finding,omitempty" yaml:"finding,omitempty"`
	Reclaimed       string               `json:"reclaimed,omitempty" yaml:"reclaimed,omitempty"`
	Skipped         string               `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Current         types.Snapshot       `json:"-" yaml:"-"`
	Previous        types.Snapshot       `json:"-" yaml:"-"`
	Stats           inventory.ParseStats `json:"stats" yaml:"stats"`
}

// New creates a monitor
func New(opts Options) (*Monitor, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("monitor requires a snapshot store")
	}
	if opts.Sink == nil {
		return nil, fmt.Errorf("monitor requires a finding sink")
	}
	if opts.Builder == nil {
		return nil, fmt.Errorf("monitor requires a finding builder")
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	if opts.KeyFor == nil {
		opts.KeyFor = func(hostID string) string { return hostID + ".json" }
	}
	if opts.Advisor == nil {
		opts.Advisor = retention.New(opts.Store, opts.Provider, opts.Logger)
	}
	if opts.HostIDSource == "" {
		opts.HostIDSource = HostIDFromRecord
	}
	if opts.Provider == "" {
		opts.Provider = vahtierrors.ProviderUnknown
	}

	return &Monitor{
		store:        opts.Store,
		bucket:       opts.Bucket,
		provider:     opts.Provider,
		keyFor:       opts.KeyFor,
		engine:       differ.NewDiffEngine(opts.Matcher, opts.Logger),
		sink:         opts.Sink,
		builder:      opts.Builder,
		advisor:      opts.Advisor,
		severity:     opts.Severity,
		hostIDSource: opts.HostIDSource,
		log:          opts.Logger,
	}, nil
}

// CheckHost compares the two most recent snapshots of hostID
func (m *Monitor) CheckHost(ctx context.Context, hostID string) (*Result, error) {
	key := m.keyFor(hostID)
	return m.check(ctx, m.bucket, key, "", hostID)
}

// HandleObjectEvent compares the version named by ev with the version
// stored directly before it
func (m *Monitor) HandleObjectEvent(ctx context.Context, ev ObjectEvent) (*Result, error) {
	bucket := ev.Bucket
	if bucket == "" {
		bucket = m.bucket
	}
	return m.check(ctx, bucket, ev.Key, ev.VersionID, HostIDFromKey(ev.Key))
}

// CheckHosts checks several hosts with at most concurrency checks in
// flight. Every host gets a result slot; the first error is returned after
// all started checks finish.
func (m *Monitor) CheckHosts(ctx context.Context, hostIDs []string, concurrency int) ([]*Result, error) {
	if concurrency <= 0 {
		concurrency = 1
	}

	results := make([]*Result, len(hostIDs))
	var mu sync.Mutex
	var firstErr error

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, hostID := range hostIDs {
		g.Go(func() error {
			result, err := m.CheckHost(gctx, hostID)
			results[i] = result
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("host %s: %w", hostID, err)
				}
				mu.Unlock()
			}
			// Keep checking the remaining hosts
			return nil
		})
	}
	g.Wait()

	return results, firstErr
}

// RecordSource yields the live file inventory of a host
type RecordSource interface {
	Records(ctx context.Context, hostID string) ([]types.InventoryRecord, error)
}

// Capture stores the live inventory of hostID as a new snapshot version and
// compares it with the version before it
func (m *Monitor) Capture(ctx context.Context, source RecordSource, hostID string) (*Result, error) {
	records, err := source.Records(ctx, hostID)
	if err != nil {
		return nil, vahtierrors.SnapshotUnavailableError(vahtierrors.ProviderAWS, "live inventory of "+hostID, err)
	}

	body, err := inventory.EncodeRecords(records)
	if err != nil {
		return nil, err
	}

	key := m.keyFor(hostID)
	version, err := m.store.Put(ctx, m.bucket, key, body)
	if err != nil {
		return nil, fmt.Errorf("failed to store captured inventory of %s: %w", hostID, err)
	}
	m.log.WithFields(map[string]interface{}{
		"host_id":    hostID,
		"key":        key,
		"version_id": version.ID,
		"records":    len(records),
	}).Info("captured live inventory")

	return m.check(ctx, m.bucket, key, version.ID, hostID)
}

func (m *Monitor) check(ctx context.Context, bucket, key, versionID, payloadHostID string) (*Result, error) {
	result := &Result{
		InvocationID: uuid.NewString(),
		HostID:       payloadHostID,
		Bucket:       bucket,
		Key:          key,
		Changes:      types.ChangeSet{Created: []string{}, Deleted: []string{}, Modified: []string{}},
	}
	log := m.log.WithFields(map[string]interface{}{
		"invocation_id": result.InvocationID,
		"bucket":        bucket,
		"key":           key,
	})

	// LOAD
	versions, err := m.store.Versions(ctx, bucket, key)
	if err != nil {
		return result, vahtierrors.SnapshotUnavailableError(m.provider, bucket+"/"+key, err)
	}
	if len(versions) == 0 {
		result.Skipped = SkippedNoSnapshot
		log.Info("no snapshot stored yet")
		return result, nil
	}

	current, previous, ok := storage.VersionAfter(versions, versionID)
	result.CurrentVersion = current.ID
	result.PreviousVersion = previous.ID
	if current.ID == "" {
		result.Skipped = SkippedUnknownVersion
		log.WithField("version_id", versionID).Warn("notified version is not in the version history")
		return result, nil
	}
	if !ok {
		result.Skipped = SkippedNoPrevious
		log.WithField("version_id", current.ID).Info("first snapshot for key, nothing to compare")
		return result, nil
	}

	currentRecords, stats, err := m.load(ctx, bucket, key, current.ID)
	if err != nil {
		return result, err
	}
	previousRecords, _, err := m.load(ctx, bucket, key, previous.ID)
	if err != nil {
		return result, err
	}
	result.Stats = stats

	if m.hostIDSource == HostIDFromRecord {
		if id := inventory.ExtractResourceID(currentRecords); id != "" {
			result.HostID = id
		}
	}
	log = log.WithFields(map[string]interface{}{
		"host_id":          result.HostID,
		"current_version":  current.ID,
		"previous_version": previous.ID,
	})
	if stats.Skipped > 0 {
		log.WithField("skipped_lines", stats.Skipped).Warn("skipped undecodable inventory lines")
	}

	// DIFFED
	result.Current = types.NewSnapshot(currentRecords)
	result.Previous = types.NewSnapshot(previousRecords)
	result.Changes = m.engine.Diff(result.Previous, result.Current)

	if result.Changes.IsEmpty() {
		// RECLAIM_OR_NOOP
		result.Reclaimed = m.advisor.Reclaim(ctx, bucket, key, result.Changes, current.ID, previous.ID)
		log.Info("no critical file changes")
		return result, nil
	}

	// EMIT_FINDING
	finding, err := m.builder.Build(result.HostID, result.Changes, m.severity)
	if err != nil {
		return result, err
	}
	result.Finding = finding

	if err := m.sink.Send(ctx, finding); err != nil {
		return result, vahtierrors.SinkDeliveryError(m.provider, finding.ID, err)
	}

	created, modified, deleted := result.Changes.Counts()
	log.WithFields(map[string]interface{}{
		"finding_id": finding.ID,
		"created":    created,
		"modified":   modified,
		"deleted":    deleted,
	}).Warn("critical file changes detected")

	return result, nil
}

func (m *Monitor) load(ctx context.Context, bucket, key, versionID string) ([]types.InventoryRecord, inventory.ParseStats, error) {
	location := fmt.Sprintf("%s/%s@%s", bucket, key, versionID)

	body, err := m.store.Open(ctx, bucket, key, versionID)
	if err != nil {
		return nil, inventory.ParseStats{}, vahtierrors.SnapshotUnavailableError(m.provider, location, err)
	}
	defer body.Close()

	records, stats, err := inventory.ParseRecords(body)
	if err != nil {
		return nil, stats, vahtierrors.SnapshotUnavailableError(m.provider, location, err)
	}
	return records, stats, nil
}

// HostIDFromKey derives a host id from an object key: the base name
// without its extension
func HostIDFromKey(key string) string {
	base := path.Base(key)
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, path.Ext(base))
}

// Handle runs the checks an invocation asks for. Every event is checked;
// the first error is returned after all of them ran.
func (m *Monitor) Handle(ctx context.Context, inv Invocation) ([]*Result, error) {
	if inv.HostID != "" {
		result, err := m.CheckHost(ctx, inv.HostID)
		return []*Result{result}, err
	}

	results := make([]*Result, 0, len(inv.Events))
	var firstErr error
	for _, ev := range inv.Events {
		result, err := m.HandleObjectEvent(ctx, ev)
		if result != nil {
			results = append(results, result)
		}
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%s/%s: %w", ev.Bucket, ev.Key, err)
		}
	}
	return results, firstErr
}
