// Package storage defines the interface for object storage operations.
// Swap implementations by changing the concrete type injected at startup —
// the MinIO implementation works with any S3-compatible provider.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound is returned when an operation targets an object key
// that does not exist in the bucket.
var ErrObjectNotFound = errors.New("object not found")

// ErrStoreUnavailable is returned when the object store cannot be reached
// or rejects a request for reasons other than a missing key.
var ErrStoreUnavailable = errors.New("object store unavailable")

// ErrNoExtension is returned when an uploaded filename carries no usable
// extension, so no storage key can be derived from it.
var ErrNoExtension = errors.New("filename has no extension")

// ObjectStore is the interface for storing, replacing and removing objects.
// Objects are identified by their address: the public URL returned on store,
// whose last path segment is the storage key.
type ObjectStore interface {
	// Store streams data into the bucket under a freshly generated key
	// and returns the public address of the new object.
	Store(ctx context.Context, r io.Reader, size int64, contentType, originalName string) (string, error)
	// Replace removes the object at oldAddress, then stores the new data.
	// The two steps are independent calls, not a transaction: a failure
	// after the removal leaves no object at either address.
	Replace(ctx context.Context, r io.Reader, size int64, contentType, originalName, oldAddress string) (string, error)
	// Remove deletes the object addressed by address. Removing an absent
	// key fails with ErrObjectNotFound rather than succeeding silently.
	Remove(ctx context.Context, address string) error
}
