package storage

import (
	"strings"

	"github.com/google/uuid"
)

// NewObjectKey derives a unique storage key for an uploaded file as
// "<uuid>.<ext>", where ext is taken from the original filename. The random
// key makes collisions with existing objects negligible, so keys are never
// overwritten. Filenames without an extension are rejected with
// ErrNoExtension.
func NewObjectKey(originalName string) (string, error) {
	dot := strings.LastIndex(originalName, ".")
	if dot < 0 || dot == len(originalName)-1 {
		return "", ErrNoExtension
	}
	return uuid.NewString() + originalName[dot:], nil
}

// KeyFromAddress extracts the storage key from an object address: the last
// path segment of the URL.
func KeyFromAddress(address string) string {
	if i := strings.LastIndex(address, "/"); i >= 0 {
		return address[i+1:]
	}
	return address
}
