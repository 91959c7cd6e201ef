package differ

import (
	"github.com/yairfalse/vahti/internal/logger"
	"github.com/yairfalse/vahti/pkg/types"
)

// Diff classifies the critical-path changes between two snapshots.
// Snapshot paths are walked in sorted order, so every set in the result is
// sorted and the same inputs always yield the same ChangeSet.
func Diff(previous, current types.Snapshot, matcher Matcher) types.ChangeSet {
	changes := types.ChangeSet{
		Created:  []string{},
		Deleted:  []string{},
		Modified: []string{},
	}
	if matcher == nil {
		return changes
	}

	// Paths in current: created or possibly modified
	for _, path := range current.Paths() {
		if !matcher.IsCritical(path) {
			continue
		}
		currentMarker, _ := current.Marker(path)
		previousMarker, existed := previous.Marker(path)
		if !existed {
			changes.Created = append(changes.Created, path)
			continue
		}
		if MarkersDiffer(previousMarker, currentMarker) {
			changes.Modified = append(changes.Modified, path)
		}
	}

	// Paths only in previous: deleted
	for _, path := range previous.Paths() {
		if current.Has(path) || !matcher.IsCritical(path) {
			continue
		}
		changes.Deleted = append(changes.Deleted, path)
	}

	return changes
}

// DiffEngine runs Diff with a fixed matcher and logs the outcome
type DiffEngine struct {
	matcher Matcher
	log     logger.Logger
}

// NewDiffEngine creates a new diff engine
func NewDiffEngine(matcher Matcher, log logger.Logger) *DiffEngine {
	if log == nil {
		log = logger.NewNop()
	}
	return &DiffEngine{
		matcher: matcher,
		log:     log,
	}
}

// Diff compares previous against current
func (e *DiffEngine) Diff(previous, current types.Snapshot) types.ChangeSet {
	changes := Diff(previous, current, e.matcher)

	created, modified, deleted := changes.Counts()
	e.log.WithFields(map[string]interface{}{
		"previous_paths": previous.Len(),
		"current_paths":  current.Len(),
		"created":        created,
		"modified":       modified,
		"deleted":        deleted,
	}).Debug("snapshot diff complete")

	return changes
}
