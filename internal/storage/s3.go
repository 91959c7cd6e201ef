package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3API is the subset of the S3 client used by S3Store
type S3API interface {
	ListObjectVersions(ctx context.Context, params *s3.ListObjectVersionsInput, optFns ...func(*s3.Options)) (*s3.ListObjectVersionsOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store reads inventory versions from a versioned S3 bucket
type S3Store struct {
	client S3API
}

// NewS3Store creates a store backed by client
func NewS3Store(client S3API) *S3Store {
	return &S3Store{client: client}
}

// Versions lists the versions of key. S3 already returns them newest first.
func (s *S3Store) Versions(ctx context.Context, bucket, key string) ([]Version, error) {
	var versions []Version
	var keyMarker, versionMarker *string

	for {
		out, err := s.client.ListObjectVersions(ctx, &s3.ListObjectVersionsInput{
			Bucket:          aws.String(bucket),
			Prefix:          aws.String(key),
			KeyMarker:       keyMarker,
			VersionIdMarker: versionMarker,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list versions of s3://%s/%s: %w", bucket, key, classifyS3Error(err))
		}

		for _, v := range out.Versions {
			// Prefix listing also returns longer keys
			if aws.ToString(v.Key) != key {
				continue
			}
			versions = append(versions, Version{
				ID:           aws.ToString(v.VersionId),
				LastModified: aws.ToTime(v.LastModified),
				IsLatest:     aws.ToBool(v.IsLatest),
				Size:         aws.ToInt64(v.Size),
			})
		}

		if !aws.ToBool(out.IsTruncated) {
			break
		}
		keyMarker = out.NextKeyMarker
		versionMarker = out.NextVersionIdMarker
	}

	return versions, nil
}

// Open downloads one version of key
func (s *S3Store) Open(ctx context.Context, bucket, key, versionID string) (io.ReadCloser, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if versionID != "" {
		input.VersionId = aws.String(versionID)
	}

	out, err := s.client.GetObject(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to download s3://%s/%s (version %s): %w", bucket, key, versionID, classifyS3Error(err))
	}
	return out.Body, nil
}

// Delete permanently removes one version of key
func (s *S3Store) Delete(ctx context.Context, bucket, key, versionID string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket:    aws.String(bucket),
		Key:       aws.String(key),
		VersionId: aws.String(versionID),
	})
	if err != nil {
		return fmt.Errorf("failed to delete s3://%s/%s (version %s): %w", bucket, key, versionID, classifyS3Error(err))
	}
	return nil
}

// Put uploads body as a new version of key
func (s *S3Store) Put(ctx context.Context, bucket, key string, body []byte) (Version, error) {
	out, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return Version{}, fmt.Errorf("failed to upload s3://%s/%s: %w", bucket, key, classifyS3Error(err))
	}
	return Version{
		ID:           aws.ToString(out.VersionId),
		LastModified: time.Now().UTC(),
		IsLatest:     true,
		Size:         int64(len(body)),
	}, nil
}

// classifyS3Error maps missing object errors onto ErrNotFound
func classifyS3Error(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NoSuchVersion", "NotFound":
			return fmt.Errorf("%w: %s", ErrNotFound, apiErr.ErrorMessage())
		}
	}
	return err
}
