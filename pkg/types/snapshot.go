package types

import (
	"sort"
	"time"
)

// Snapshot is a point-in-time mapping of absolute file path to last-modified
// marker for one host. The zero value is an empty snapshot. A Snapshot is never
// mutated after construction.
type Snapshot struct {
	markers map[string]string
}

// SnapshotMeta describes where a snapshot was loaded from.
type SnapshotMeta struct {
	HostID     string    `json:"host_id"`
	VersionID  string    `json:"version_id"`
	CapturedAt time.Time `json:"captured_at"`
	Source     string    `json:"source"`
}

// NewSnapshot builds a snapshot from raw inventory records. Records missing a
// name, directory or marker are dropped. When a path occurs more than once the
// last record wins.
func NewSnapshot(records []InventoryRecord) Snapshot {
	markers := make(map[string]string, len(records))
	for _, r := range records {
		path, ok := r.Path()
		if !ok {
			continue
		}
		markers[path] = r.Marker()
	}
	return Snapshot{markers: markers}
}

// SnapshotFromMap builds a snapshot from an existing path → marker map.
// The map is copied; empty paths are skipped.
func SnapshotFromMap(m map[string]string) Snapshot {
	markers := make(map[string]string, len(m))
	for path, marker := range m {
		if path == "" {
			continue
		}
		markers[path] = marker
	}
	return Snapshot{markers: markers}
}

// Marker returns the marker recorded for path.
func (s Snapshot) Marker(path string) (string, bool) {
	marker, ok := s.markers[path]
	return marker, ok
}

// Has reports whether path is present in the snapshot.
func (s Snapshot) Has(path string) bool {
	_, ok := s.markers[path]
	return ok
}

// Len returns the number of paths in the snapshot.
func (s Snapshot) Len() int {
	return len(s.markers)
}

// Paths returns all paths in ascending order.
func (s Snapshot) Paths() []string {
	paths := make([]string, 0, len(s.markers))
	for path := range s.markers {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
