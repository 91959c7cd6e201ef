package storage

import (
	"context"
	"errors"
	"io"
	"sort"
	"time"
)

// ErrNotFound is returned when an object or one of its versions does not exist
var ErrNotFound = errors.New("object not found")

// Store defines the interface for versioned inventory objects.
// Every write of a key creates a new version; old versions stay readable
// until deleted.
type Store interface {
	// Versions returns the version history of key, newest first
	Versions(ctx context.Context, bucket, key string) ([]Version, error)
	// Open returns the body of one version of key
	Open(ctx context.Context, bucket, key, versionID string) (io.ReadCloser, error)
	// Delete removes one version of key
	Delete(ctx context.Context, bucket, key, versionID string) error
	// Put writes body as a new version of key
	Put(ctx context.Context, bucket, key string, body []byte) (Version, error)
}

// Version describes one stored version of an object
type Version struct {
	ID           string    `json:"id"`
	LastModified time.Time `json:"last_modified"`
	IsLatest     bool      `json:"is_latest"`
	Size         int64     `json:"size"`
}

// Location is a store bound to the bucket named in its URL
type Location struct {
	Store   Store
	Backend string
	Bucket  string
}

// URL renders a human readable address for key in this location
func (l Location) URL(key string) string {
	return l.Backend + "://" + l.Bucket + "/" + key
}

// SortNewestFirst orders versions by modification time, newest first.
// Ties are broken by version id, descending.
func SortNewestFirst(versions []Version) {
	sort.SliceStable(versions, func(i, j int) bool {
		if !versions[i].LastModified.Equal(versions[j].LastModified) {
			return versions[i].LastModified.After(versions[j].LastModified)
		}
		return versions[i].ID > versions[j].ID
	})
}

// VersionAfter returns the version that directly precedes currentID in a
// newest-first history. An empty currentID selects the newest version.
func VersionAfter(versions []Version, currentID string) (current, previous Version, ok bool) {
	if len(versions) == 0 {
		return Version{}, Version{}, false
	}
	if currentID == "" {
		current = versions[0]
		if len(versions) < 2 {
			return current, Version{}, false
		}
		return current, versions[1], true
	}
	for i, v := range versions {
		if v.ID != currentID {
			continue
		}
		if i+1 >= len(versions) {
			return v, Version{}, false
		}
		return v, versions[i+1], true
	}
	return Version{}, Version{}, false
}
