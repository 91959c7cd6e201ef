package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	versionExt = ".jsonl"
	// VersionIDLayout is sortable, so lexical order equals age order
	VersionIDLayout = "20060102T150405.000000000Z"
)

// LocalStore implements Store on the local filesystem. Each version of a key
// is a file: <root>/<bucket>/<key>/<version id>.jsonl
type LocalStore struct {
	root   string
	writer *AtomicWriter
	now    func() time.Time

	mu     sync.Mutex
	lastID string
}

// NewLocalStore creates a local store rooted at root
func NewLocalStore(root string) (*LocalStore, error) {
	if root == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		root = filepath.Join(homeDir, ".vahti", "store")
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", root, err)
	}

	return &LocalStore{
		root:   root,
		writer: NewAtomicWriter(),
		now:    time.Now,
	}, nil
}

// Root returns the store's base directory
func (s *LocalStore) Root() string {
	return s.root
}

// ObjectDir returns the directory that holds the versions of key
func (s *LocalStore) ObjectDir(bucket, key string) (string, error) {
	if bucket == "" || key == "" {
		return "", fmt.Errorf("bucket and key are required")
	}
	for _, part := range append([]string{bucket}, strings.Split(key, "/")...) {
		if part == "" || part == "." || part == ".." {
			return "", fmt.Errorf("invalid object path %s/%s", bucket, key)
		}
	}
	return filepath.Join(s.root, bucket, filepath.FromSlash(key)), nil
}

// ParsePath maps a version file below the root back to its bucket, key and
// version id
func (s *LocalStore) ParsePath(path string) (bucket, key, versionID string, ok bool) {
	rel, err := filepath.Rel(s.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", "", "", false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 3 {
		return "", "", "", false
	}
	file := parts[len(parts)-1]
	if !strings.HasSuffix(file, versionExt) || strings.HasPrefix(file, ".") {
		return "", "", "", false
	}
	return parts[0], strings.Join(parts[1:len(parts)-1], "/"), strings.TrimSuffix(file, versionExt), true
}

// Versions lists the versions of key, newest first. A key that was never
// written has no versions.
func (s *LocalStore) Versions(ctx context.Context, bucket, key string) ([]Version, error) {
	dir, err := s.ObjectDir(bucket, key)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Version{}, nil
		}
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	versions := make([]Version, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, versionExt) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}

		id := strings.TrimSuffix(name, versionExt)
		modified, err := time.Parse(VersionIDLayout, id)
		if err != nil {
			modified = info.ModTime().UTC()
		}
		versions = append(versions, Version{
			ID:           id,
			LastModified: modified,
			Size:         info.Size(),
		})
	}

	SortNewestFirst(versions)
	if len(versions) > 0 {
		versions[0].IsLatest = true
	}
	return versions, nil
}

// Open opens one version of key; an empty version id opens the newest
func (s *LocalStore) Open(ctx context.Context, bucket, key, versionID string) (io.ReadCloser, error) {
	path, err := s.versionPath(ctx, bucket, key, versionID)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s/%s version %s", ErrNotFound, bucket, key, versionID)
		}
		return nil, err
	}
	return f, nil
}

// Delete removes one version of key
func (s *LocalStore) Delete(ctx context.Context, bucket, key, versionID string) error {
	if versionID == "" {
		return fmt.Errorf("version id is required")
	}
	path, err := s.versionPath(ctx, bucket, key, versionID)
	if err != nil {
		return err
	}

	if err := s.writer.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s/%s version %s", ErrNotFound, bucket, key, versionID)
		}
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	return nil
}

// Put writes body as a new version of key
func (s *LocalStore) Put(ctx context.Context, bucket, key string, body []byte) (Version, error) {
	dir, err := s.ObjectDir(bucket, key)
	if err != nil {
		return Version{}, err
	}

	now, id := s.nextVersionID()
	if err := s.writer.WriteFile(filepath.Join(dir, id+versionExt), body, 0o644, true); err != nil {
		return Version{}, fmt.Errorf("failed to write version %s of %s/%s: %w", id, bucket, key, err)
	}

	return Version{
		ID:           id,
		LastModified: now,
		IsLatest:     true,
		Size:         int64(len(body)),
	}, nil
}

// nextVersionID returns a version id strictly greater than every id this
// store handed out before
func (s *LocalStore) nextVersionID() (time.Time, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	id := now.Format(VersionIDLayout)
	for id <= s.lastID {
		now = now.Add(time.Nanosecond)
		id = now.Format(VersionIDLayout)
	}
	s.lastID = id
	return now, id
}

func (s *LocalStore) versionPath(ctx context.Context, bucket, key, versionID string) (string, error) {
	dir, err := s.ObjectDir(bucket, key)
	if err != nil {
		return "", err
	}

	if versionID == "" {
		versions, err := s.Versions(ctx, bucket, key)
		if err != nil {
			return "", err
		}
		if len(versions) == 0 {
			return "", fmt.Errorf("%w: %s/%s", ErrNotFound, bucket, key)
		}
		versionID = versions[0].ID
	}

	if strings.ContainsAny(versionID, `/\`) || strings.HasPrefix(versionID, ".") {
		return "", fmt.Errorf("invalid version id %q", versionID)
	}
	return filepath.Join(dir, versionID+versionExt), nil
}
