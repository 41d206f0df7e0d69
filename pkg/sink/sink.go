// Package sink persists execution results outside the call cache, keyed by
// fingerprint. The scheduler only requires Put; storage details (SQL, files,
// anything else) stay behind the interface.
package sink

import (
	"context"
	"time"
)

// Record is one persisted call outcome.
type Record struct {
	// Fingerprint is the call's cache key and the row identity.
	Fingerprint string

	// SourceID groups the records of one batch run.
	SourceID string

	// CallType is the call kind (freqs, wordlist, ...).
	CallType string

	// Label is an optional human-readable tag from call metadata.
	Label string

	// CreatedAt is when the record was produced.
	CreatedAt time.Time

	// Params is the canonical, credential-free parameter JSON.
	Params []byte

	// Meta is the opaque pass-through metadata JSON, nil when absent.
	Meta []byte

	// Error is the detected application-level error, empty when none.
	Error string

	// Body is the (possibly projected) response body.
	Body []byte
}

// Sink receives records keyed by fingerprint. Put replaces any previous
// record for the same fingerprint.
type Sink interface {
	Put(ctx context.Context, fingerprint string, record *Record) error
}
