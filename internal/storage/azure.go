package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"time"

	"github.com/Azure/azure-pipeline-go/pipeline"
	"github.com/Azure/azure-storage-blob-go/azblob"
)

// AzureStore reads inventory versions from a blob container with blob
// versioning enabled
type AzureStore struct {
	account  string
	pipeline pipeline.Pipeline
}

// NewAzureStore creates a store for the given storage account
func NewAzureStore(account string, credential azblob.Credential) *AzureStore {
	return &AzureStore{
		account:  account,
		pipeline: azblob.NewPipeline(credential, azblob.PipelineOptions{}),
	}
}

func (s *AzureStore) containerURL(container string) (azblob.ContainerURL, error) {
	// Azure Storage URL format: https://<account>.blob.core.windows.net/<container>
	u, err := url.Parse(fmt.Sprintf("https://%s.blob.core.windows.net/%s", s.account, container))
	if err != nil {
		return azblob.ContainerURL{}, fmt.Errorf("failed to parse Azure container URL: %w", err)
	}
	return azblob.NewContainerURL(*u, s.pipeline), nil
}

func (s *AzureStore) blobURL(container, key, versionID string) (azblob.BlobURL, error) {
	c, err := s.containerURL(container)
	if err != nil {
		return azblob.BlobURL{}, err
	}
	blob := c.NewBlobURL(key)
	if versionID != "" {
		blob = blob.WithVersionID(versionID)
	}
	return blob, nil
}

// Versions lists every version of key, newest first. Azure version ids are
// timestamps and sort lexically.
func (s *AzureStore) Versions(ctx context.Context, container, key string) ([]Version, error) {
	c, err := s.containerURL(container)
	if err != nil {
		return nil, err
	}

	var versions []Version
	for marker := (azblob.Marker{}); marker.NotDone(); {
		resp, err := c.ListBlobsFlatSegment(ctx, marker, azblob.ListBlobsSegmentOptions{
			Prefix:  key,
			Details: azblob.BlobListingDetails{Versions: true},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list versions of %s/%s: %w", container, key, classifyAzureError(err))
		}
		marker = resp.NextMarker

		for _, item := range resp.Segment.BlobItems {
			if item.Name != key || item.VersionID == nil {
				continue
			}
			v := Version{
				ID:           *item.VersionID,
				LastModified: item.Properties.LastModified,
				IsLatest:     item.IsCurrentVersion != nil && *item.IsCurrentVersion,
			}
			if item.Properties.ContentLength != nil {
				v.Size = *item.Properties.ContentLength
			}
			versions = append(versions, v)
		}
	}

	sort.SliceStable(versions, func(i, j int) bool {
		return versions[i].ID > versions[j].ID
	})
	return versions, nil
}

// Open downloads one version of key
func (s *AzureStore) Open(ctx context.Context, container, key, versionID string) (io.ReadCloser, error) {
	blob, err := s.blobURL(container, key, versionID)
	if err != nil {
		return nil, err
	}
	resp, err := blob.Download(ctx, 0, azblob.CountToEnd, azblob.BlobAccessConditions{}, false, azblob.ClientProvidedKeyOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to download %s/%s (version %s): %w", container, key, versionID, classifyAzureError(err))
	}
	return resp.Body(azblob.RetryReaderOptions{MaxRetryRequests: 3}), nil
}

// Delete removes one version of key
func (s *AzureStore) Delete(ctx context.Context, container, key, versionID string) error {
	blob, err := s.blobURL(container, key, versionID)
	if err != nil {
		return err
	}
	if _, err := blob.Delete(ctx, azblob.DeleteSnapshotsOptionNone, azblob.BlobAccessConditions{}); err != nil {
		return fmt.Errorf("failed to delete %s/%s (version %s): %w", container, key, versionID, classifyAzureError(err))
	}
	return nil
}

// Put uploads body as a new version of key
func (s *AzureStore) Put(ctx context.Context, container, key string, body []byte) (Version, error) {
	c, err := s.containerURL(container)
	if err != nil {
		return Version{}, err
	}

	resp, err := azblob.UploadBufferToBlockBlob(ctx, body, c.NewBlockBlobURL(key), azblob.UploadToBlockBlobOptions{
		BlobHTTPHeaders: azblob.BlobHTTPHeaders{ContentType: "application/x-ndjson"},
	})
	if err != nil {
		return Version{}, fmt.Errorf("failed to upload %s/%s: %w", container, key, classifyAzureError(err))
	}

	v := Version{
		LastModified: resp.LastModified(),
		IsLatest:     true,
		Size:         int64(len(body)),
	}
	if withVersion, ok := resp.(interface{ VersionID() string }); ok {
		v.ID = withVersion.VersionID()
	}
	if v.LastModified.IsZero() {
		v.LastModified = time.Now().UTC()
	}
	return v, nil
}

func classifyAzureError(err error) error {
	var stgErr azblob.StorageError
	if errors.As(err, &stgErr) {
		switch stgErr.ServiceCode() {
		case azblob.ServiceCodeBlobNotFound, azblob.ServiceCodeContainerNotFound:
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		}
	}
	return err
}
