package cache

import (
	"context"
	"errors"
)

var (
	// ErrCacheMiss indicates no entry exists for a fingerprint. Corrupt or
	// half-materialized artifacts are reported as misses too, so callers
	// simply re-dispatch.
	ErrCacheMiss = errors.New("cache miss")
)

// Store is a content-addressed persistence gate keyed by fingerprint. It is
// the skip gate for the call scheduler: a call whose fingerprint is present
// is served locally instead of generating network traffic.
//
// Writes are all-or-nothing: a reader never observes a partially written
// entry. Entries are never mutated in place; a later Put for the same
// fingerprint replaces the entry wholesale. Concurrent writers for one
// fingerprint store content-equivalent data, so last-write-wins is correct.
type Store interface {
	// Has reports whether an entry exists for the fingerprint.
	Has(ctx context.Context, fingerprint string) bool

	// Get returns the stored entry or ErrCacheMiss.
	Get(ctx context.Context, fingerprint string) (*Entry, error)

	// Put atomically stores an entry, replacing any previous one.
	Put(ctx context.Context, fingerprint string, entry *Entry) error

	// Clear empties the entire store (force re-fetch mode).
	Clear(ctx context.Context) error
}
