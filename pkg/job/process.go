package job

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/engisalor/sketch-grammar-explorer/pkg/cache"
	"github.com/engisalor/sketch-grammar-explorer/pkg/call"
)

// processResponse turns a transport-complete HTTP response into a cache
// entry and a result classification. Credentials echoed by the service are
// stripped before anything is persisted; a service-reported error field is
// detected independent of HTTP status.
//
// Transport failures (>= 500, or errors before a response exists) are
// handled by the caller and never reach this function.
func processResponse(resp *http.Response, spec *call.Spec, credentialKeys []string) (*cache.Entry, *RequestError) {
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RequestError{
			Class:      StatusTransportFailed,
			StatusCode: resp.StatusCode,
			Message:    "read response body",
			Err:        err,
		}
	}

	entry := &cache.Entry{
		URL:      redactURL(resp.Request.URL, credentialKeys),
		Status:   resp.StatusCode,
		Reason:   http.StatusText(resp.StatusCode),
		Format:   spec.Format(),
		CachedAt: time.Now().UTC(),
	}

	if isJSON(resp.Header.Get("Content-Type")) {
		body, appErr, err := redactJSON(raw, credentialKeys)
		if err != nil {
			return nil, &RequestError{
				Class:      StatusTransportFailed,
				StatusCode: resp.StatusCode,
				Message:    "malformed JSON response",
				Err:        err,
			}
		}
		entry.Body = body
		entry.AppError = appErr
	} else {
		// BOM shows up on some non-JSON exports
		entry.Body = bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF})
	}

	if entry.AppError != "" {
		return entry, &RequestError{
			Class:      StatusAppError,
			StatusCode: resp.StatusCode,
			Message:    entry.AppError,
		}
	}

	// non-JSON body cannot carry a detectable service error; a 4xx there
	// counts as a transport-level failure and is not cached
	if resp.StatusCode >= 400 {
		return nil, &RequestError{
			Class:      StatusTransportFailed,
			StatusCode: resp.StatusCode,
			Message:    resp.Status,
		}
	}

	return entry, nil
}

// redactJSON removes credential fields from a decoded response body, both
// at the top level and inside the echoed request object, then re-serializes
// it. Returns the redacted body and the service-reported error, if any.
func redactJSON(raw []byte, credentialKeys []string) ([]byte, string, error) {
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, "", fmt.Errorf("decode response: %w", err)
	}

	for _, key := range credentialKeys {
		delete(body, key)
	}
	if request, ok := body["request"].(map[string]any); ok {
		for _, key := range credentialKeys {
			delete(request, key)
		}
	}

	appErr := ""
	if e, ok := body["error"].(string); ok {
		appErr = e
	}

	redacted, err := json.MarshalIndent(body, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("encode redacted response: %w", err)
	}
	return redacted, appErr, nil
}

// projectBody narrows a JSON entry body to the call's keep set for
// persistence. Non-JSON bodies and empty keep sets pass through unchanged.
func projectBody(entry *cache.Entry, spec *call.Spec) []byte {
	if len(spec.Keep) == 0 || entry.Format != "json" {
		return entry.Body
	}
	var body map[string]any
	if err := json.Unmarshal(entry.Body, &body); err != nil {
		return entry.Body
	}
	narrowed, err := json.Marshal(call.Project(body, spec.Keep))
	if err != nil {
		return entry.Body
	}
	return narrowed
}

func isJSON(contentType string) bool {
	return strings.Contains(contentType, "application/json")
}
