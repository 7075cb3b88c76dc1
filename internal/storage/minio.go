package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore implements ObjectStore using a MinIO (or any S3-compatible) backend.
type MinioStore struct {
	client     *minio.Client
	bucket     string
	publicBase string
}

// NewMinioStore creates a MinIO client, ensures the bucket exists, and
// returns a ready-to-use MinioStore. Bucket provisioning happens here, once
// at startup, never per request.
func NewMinioStore(endpoint, accessKey, secretKey, bucket, publicBase string, useSSL bool) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	ctx := context.Background()

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", bucket, err)
		}
		log.Printf("storage: created bucket %q", bucket)
	}

	return &MinioStore{
		client:     client,
		bucket:     bucket,
		publicBase: strings.TrimRight(publicBase, "/"),
	}, nil
}

// Store streams r to MinIO under a new "<uuid>.<ext>" key and returns the
// public address. size must be the exact byte count (pass -1 only if the
// size is genuinely unknown — MinIO will buffer it).
func (s *MinioStore) Store(ctx context.Context, r io.Reader, size int64, contentType, originalName string) (string, error) {
	key, err := NewObjectKey(originalName)
	if err != nil {
		return "", err
	}

	_, err = s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object %q: %w: %w", key, ErrStoreUnavailable, err)
	}
	return s.publicBase + "/" + key, nil
}

// Replace removes the object at oldAddress, then stores the new data. Not
// atomic: a failure between the two calls leaves the old object deleted with
// nothing stored in its place.
func (s *MinioStore) Replace(ctx context.Context, r io.Reader, size int64, contentType, originalName, oldAddress string) (string, error) {
	if err := s.Remove(ctx, oldAddress); err != nil {
		return "", err
	}
	return s.Store(ctx, r, size, contentType, originalName)
}

// Remove deletes the object whose key is the last path segment of address.
// S3 deletes are idempotent, so the key is stat'ed first to report absent
// objects as ErrObjectNotFound.
func (s *MinioStore) Remove(ctx context.Context, address string) error {
	key := KeyFromAddress(address)

	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return fmt.Errorf("stat object %q: %w", key, ErrObjectNotFound)
		}
		return fmt.Errorf("stat object %q: %w: %w", key, ErrStoreUnavailable, err)
	}

	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %q: %w: %w", key, ErrStoreUnavailable, err)
	}
	return nil
}
