package types

// ChangeType represents the type of change detected
type ChangeType string

const (
	// Created indicates a critical file appeared
	Created ChangeType = "created"
	// Modified indicates a critical file's marker changed
	Modified ChangeType = "modified"
	// Deleted indicates a critical file disappeared
	Deleted ChangeType = "deleted"
)

// IsValid checks if the ChangeType is valid
func (ct ChangeType) IsValid() bool {
	switch ct {
	case Created, Modified, Deleted:
		return true
	default:
		return false
	}
}

// String returns the string representation of ChangeType
func (ct ChangeType) String() string {
	return string(ct)
}

// ChangeSet is the classified result of diffing two snapshots. The three sets
// are disjoint and each is sorted ascending.
type ChangeSet struct {
	Created  []string `json:"created"`
	Deleted  []string `json:"deleted"`
	Modified []string `json:"modified"`
}

// IsEmpty returns true if no critical path changed
func (c ChangeSet) IsEmpty() bool {
	return len(c.Created) == 0 && len(c.Deleted) == 0 && len(c.Modified) == 0
}

// Total returns the total number of changed paths
func (c ChangeSet) Total() int {
	return len(c.Created) + len(c.Deleted) + len(c.Modified)
}

// Counts returns the created, modified and deleted counts, in that order.
func (c ChangeSet) Counts() (created, modified, deleted int) {
	return len(c.Created), len(c.Modified), len(c.Deleted)
}

// ByType returns the paths of a specific change type
func (c ChangeSet) ByType(changeType ChangeType) []string {
	switch changeType {
	case Created:
		return c.Created
	case Modified:
		return c.Modified
	case Deleted:
		return c.Deleted
	default:
		return nil
	}
}

// TypeOf returns the change type of path, if it changed at all.
func (c ChangeSet) TypeOf(path string) (ChangeType, bool) {
	for _, ct := range []ChangeType{Created, Modified, Deleted} {
		for _, p := range c.ByType(ct) {
			if p == path {
				return ct, true
			}
		}
	}
	return "", false
}
