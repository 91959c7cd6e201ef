package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSStore reads inventory versions from a Cloud Storage bucket with object
// versioning enabled. Object generations serve as version ids.
type GCSStore struct {
	client *gcs.Client
}

// NewGCSStore creates a Cloud Storage client with default authentication
func NewGCSStore(ctx context.Context, opts ...option.ClientOption) (*GCSStore, error) {
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &GCSStore{client: client}, nil
}

// Close releases the underlying client
func (s *GCSStore) Close() error {
	return s.client.Close()
}

// Versions lists every generation of key, newest first
func (s *GCSStore) Versions(ctx context.Context, bucket, key string) ([]Version, error) {
	query := &gcs.Query{Prefix: key, Versions: true}
	if err := query.SetAttrSelection([]string{"Name", "Generation", "Updated", "Deleted", "Size"}); err != nil {
		return nil, err
	}

	var versions []Version
	it := s.client.Bucket(bucket).Objects(ctx, query)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list generations of gs://%s/%s: %w", bucket, key, err)
		}
		if attrs.Name != key {
			continue
		}
		versions = append(versions, Version{
			ID:           strconv.FormatInt(attrs.Generation, 10),
			LastModified: attrs.Updated,
			IsLatest:     attrs.Deleted.IsZero(),
			Size:         attrs.Size,
		})
	}

	SortNewestFirst(versions)
	return versions, nil
}

// Open reads one generation of key
func (s *GCSStore) Open(ctx context.Context, bucket, key, versionID string) (io.ReadCloser, error) {
	obj, err := s.object(bucket, key, versionID)
	if err != nil {
		return nil, err
	}
	reader, err := obj.NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read gs://%s/%s#%s: %w", bucket, key, versionID, classifyGCSError(err))
	}
	return reader, nil
}

// Delete removes one generation of key
func (s *GCSStore) Delete(ctx context.Context, bucket, key, versionID string) error {
	obj, err := s.object(bucket, key, versionID)
	if err != nil {
		return err
	}
	if err := obj.Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete gs://%s/%s#%s: %w", bucket, key, versionID, classifyGCSError(err))
	}
	return nil
}

// Put writes body as a new generation of key
func (s *GCSStore) Put(ctx context.Context, bucket, key string, body []byte) (Version, error) {
	w := s.client.Bucket(bucket).Object(key).NewWriter(ctx)
	w.ContentType = "application/x-ndjson"
	if _, err := w.Write(body); err != nil {
		w.Close()
		return Version{}, fmt.Errorf("failed to write gs://%s/%s: %w", bucket, key, err)
	}
	if err := w.Close(); err != nil {
		return Version{}, fmt.Errorf("failed to write gs://%s/%s: %w", bucket, key, err)
	}

	attrs := w.Attrs()
	return Version{
		ID:           strconv.FormatInt(attrs.Generation, 10),
		LastModified: attrs.Updated,
		IsLatest:     true,
		Size:         attrs.Size,
	}, nil
}

func (s *GCSStore) object(bucket, key, versionID string) (*gcs.ObjectHandle, error) {
	obj := s.client.Bucket(bucket).Object(key)
	if versionID == "" {
		return obj, nil
	}
	generation, err := strconv.ParseInt(versionID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid GCS generation %q: %w", versionID, err)
	}
	return obj.Generation(generation), nil
}

func classifyGCSError(err error) error {
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}
