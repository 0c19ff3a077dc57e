// Package repository stores versioned documents.
//
// Every document carries an opaque JSON payload and a version token that
// strictly increases on each successful write. Writers either compare against
// the version they loaded (Set) or run an atomic read-modify-write (Transact).
package repository

import (
	"context"
	"encoding/json"
)

// Document is the wire shape of a stored document.
type Document struct {
	Data      json.RawMessage `json:"data"`
	UpdatedAt string          `json:"updatedAt"`
}

// SaveResult is the outcome of a guarded write. A conflict is a normal
// result, not an error.
type SaveResult struct {
	Success        bool   `json:"success"`
	Version        string `json:"version,omitempty"`
	Conflict       bool   `json:"conflict,omitempty"`
	CurrentVersion string `json:"currentVersion,omitempty"`
	Message        string `json:"message,omitempty"`
}

// TxFunc computes the next payload from the current one. current is nil when
// the document does not exist. Returning a nil payload skips the write.
// The function may run more than once and must not have side effects beyond
// its return values.
type TxFunc func(current []byte) (next []byte, err error)

// Store is a versioned document store.
type Store interface {
	// Get returns ErrNotFound when the key is absent.
	Get(ctx context.Context, key string) (Document, error)
	// Set writes data when expectedVersion matches the stored version, or
	// unconditionally when expectedVersion is empty.
	Set(ctx context.Context, key string, data []byte, expectedVersion string) (SaveResult, error)
	// Transact atomically replaces the document with fn's result.
	Transact(ctx context.Context, key string, fn TxFunc) (Document, error)
	// Backend names the implementation for logs and metrics.
	Backend() string
	Close() error
}
