// Package cache provides content-addressed response caching keyed by call
// fingerprints, with filesystem and Redis backends.
package cache

import "time"

// Entry is the persisted artifact for one fingerprint: response metadata
// plus the body. Metadata and body materialize together or not at all.
type Entry struct {
	// URL is the origin URL with credential parameters stripped.
	URL string `json:"url"`

	// Status is the HTTP status code of the origin response.
	Status int `json:"status"`

	// Reason is the HTTP status text.
	Reason string `json:"reason,omitempty"`

	// Format is the response encoding (json, xml, csv, txt, xlsx). It
	// determines the body file extension in the filesystem backend.
	Format string `json:"format"`

	// AppError is a service-reported error found in the response body,
	// empty when none was detected. A response can complete at the
	// transport layer and still carry one of these.
	AppError string `json:"app_error,omitempty"`

	// CachedAt is when the entry was written.
	CachedAt time.Time `json:"cached_at"`

	// Body is the redacted response body, stored separately from the
	// metadata by the filesystem backend.
	Body []byte `json:"-"`
}

// HasAppError reports whether the cached response carried a service-level
// error.
func (e *Entry) HasAppError() bool {
	return e.AppError != ""
}
