package job

import (
	"errors"
	"fmt"

	"github.com/engisalor/sketch-grammar-explorer/pkg/call"
	"github.com/engisalor/sketch-grammar-explorer/pkg/cache"
)

// ErrHalted is returned by Run when the halt flag aborts a sequential batch
// on its first failure. The report still covers every call.
var ErrHalted = errors.New("batch halted on first error")

// Status is the terminal (or pending) state of one call in a batch.
type Status string

const (
	// StatusPending marks a call not yet dispatched; it remains on calls
	// skipped after a halt and on dry runs.
	StatusPending Status = "pending"

	// StatusCached marks a call served from the local cache; it generated
	// no network traffic.
	StatusCached Status = "cached"

	// StatusSucceeded marks a dispatched call whose response carried no
	// service-reported error.
	StatusSucceeded Status = "succeeded"

	// StatusTransportFailed marks a connection, timeout or server failure.
	// Nothing is cached for these.
	StatusTransportFailed Status = "transport_failed"

	// StatusAppError marks a transport-complete response carrying a
	// service-reported error: the request was malformed, not the
	// infrastructure. These responses are cached.
	StatusAppError Status = "application_error"
)

// Result is the per-call outcome. Index is the call's position in the
// submitted batch, so out-of-order completion in concurrent mode is always
// re-attributed to its source.
type Result struct {
	Index       int
	Spec        *call.Spec
	Fingerprint string
	Status      Status
	Entry       *cache.Entry
	Err         error
}

// Failed reports whether the call ended in either failure class.
func (r Result) Failed() bool {
	return r.Status == StatusTransportFailed || r.Status == StatusAppError
}

// Report summarizes one batch run. A completed run always carries at least
// the cache hit, dispatch and per-class error counts.
type Report struct {
	Results         []Result
	CacheHits       int
	Dispatched      int
	TransportErrors int
	AppErrors       int
}

// Errors returns the failed results, in batch order.
func (r *Report) Errors() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Failed() {
			out = append(out, res)
		}
	}
	return out
}

func (r *Report) count(res Result) {
	switch res.Status {
	case StatusCached:
		r.CacheHits++
	case StatusSucceeded:
		r.Dispatched++
	case StatusTransportFailed:
		r.Dispatched++
		r.TransportErrors++
	case StatusAppError:
		r.Dispatched++
		r.AppErrors++
	}
}

// RequestError describes a failed dispatch, classified as transport or
// application level.
type RequestError struct {
	Class      Status
	StatusCode int
	Message    string
	Err        error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (status %d): %s: %v", e.Class, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("%s (status %d): %s", e.Class, e.StatusCode, e.Message)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}
