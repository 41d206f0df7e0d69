package job

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/engisalor/sketch-grammar-explorer/pkg/call"
	"github.com/engisalor/sketch-grammar-explorer/pkg/config"
)

// buildRequest assembles the GET request for one call: endpoint is
// host/<type>, parameters travel in the query string, credentials are
// attached last and only here, never stored on the Spec.
func buildRequest(ctx context.Context, host string, spec *call.Spec, creds config.Credentials) (*http.Request, error) {
	endpoint := strings.TrimRight(host, "/") + "/" + string(spec.Type)

	values, err := encodeParams(spec.Params)
	if err != nil {
		return nil, err
	}
	if creds.Username != "" {
		values.Set("username", creds.Username)
	}
	if creds.APIKey != "" {
		values.Set("api_key", creds.APIKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.URL.RawQuery = values.Encode()
	if spec.Format() == "json" {
		req.Header.Set("Accept", "application/json")
	}
	return req, nil
}

// encodeParams flattens a parameter mapping into query values: scalars are
// stringified, list elements repeat the key (the API's multi-value
// convention, e.g. several q or fcrit entries), nested mappings are sent as
// compact JSON.
func encodeParams(params map[string]any) (url.Values, error) {
	values := url.Values{}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		switch v := params[k].(type) {
		case []any:
			for _, elem := range v {
				s, err := scalarString(k, elem)
				if err != nil {
					return nil, err
				}
				values.Add(k, s)
			}
		case []string:
			for _, elem := range v {
				values.Add(k, elem)
			}
		case map[string]any:
			encoded, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("encode parameter %q: %w", k, err)
			}
			values.Set(k, string(encoded))
		default:
			s, err := scalarString(k, v)
			if err != nil {
				return nil, err
			}
			values.Set(k, s)
		}
	}
	return values, nil
}

func scalarString(key string, v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case bool:
		if val {
			return "1", nil
		}
		return "0", nil
	case nil:
		return "", nil
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%v", val), nil
	case map[string]any, []any:
		return "", fmt.Errorf("parameter %q: nested collections inside lists are not supported", key)
	default:
		return fmt.Sprintf("%v", val), nil
	}
}

// redactURL strips the given credential parameters from a URL so it can be
// logged or persisted.
func redactURL(u *url.URL, credentialKeys []string) string {
	redacted := *u
	q := redacted.Query()
	for _, key := range credentialKeys {
		q.Del(key)
	}
	redacted.RawQuery = q.Encode()
	return redacted.String()
}
