// Package fingerprint derives content-addressed cache keys from call
// parameters. Two calls whose non-credential parameters are semantically
// identical hash to the same key regardless of map ordering, list ordering
// or incidental whitespace.
package fingerprint

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/gowebpki/jcs"
	"golang.org/x/crypto/blake2b"
)

// Size is the digest width in bytes. Eight bytes (16 hex chars) keeps
// collision odds negligible for practical batch sizes.
const Size = 8

// Sum computes the fingerprint of params with the given credential keys
// removed. Credentials only ever appear at the top level, so a single
// top-level filter suffices. The input is never modified.
func Sum(params map[string]any, excluded []string) (string, error) {
	serialized, err := CanonicalJSON(params, excluded)
	if err != nil {
		return "", err
	}

	h, err := blake2b.New(Size, nil)
	if err != nil {
		return "", fmt.Errorf("init digest: %w", err)
	}
	h.Write(serialized)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// CanonicalJSON returns the deterministic credential-free serialization
// that Sum hashes. It is also what gets persisted as a call's canonical
// parameter record.
func CanonicalJSON(params map[string]any, excluded []string) ([]byte, error) {
	skip := make(map[string]bool, len(excluded))
	for _, k := range excluded {
		skip[k] = true
	}

	filtered := make(map[string]any, len(params))
	for k, v := range params {
		if skip[k] {
			continue
		}
		filtered[k] = v
	}

	canonical, err := Canonicalize(filtered)
	if err != nil {
		return nil, err
	}
	return marshalCanonical(canonical)
}

// Canonicalize normalizes a parameter value: strings are trimmed, slices
// are canonicalized element-wise then sorted by their canonical
// serialization, maps are canonicalized per key. The result is a fresh
// structure sharing nothing with the input.
func Canonicalize(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v), nil
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, elem := range v {
			c, err := Canonicalize(elem)
			if err != nil {
				return nil, err
			}
			out[strings.TrimSpace(k)] = c
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		keys := make([]string, len(v))
		for i, elem := range v {
			c, err := Canonicalize(elem)
			if err != nil {
				return nil, err
			}
			out[i] = c
			serialized, err := marshalCanonical(c)
			if err != nil {
				return nil, err
			}
			keys[i] = string(serialized)
		}
		sort.Sort(&bySerialization{values: out, keys: keys})
		return out, nil
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return Canonicalize(out)
	default:
		// Scalars pass through; json round-tripping below normalizes
		// numeric representation.
		return v, nil
	}
}

// marshalCanonical serializes a canonical value deterministically using the
// RFC 8785 JSON Canonicalization Scheme.
func marshalCanonical(value any) ([]byte, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("serialize params: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonicalize params: %w", err)
	}
	return canonical, nil
}

type bySerialization struct {
	values []any
	keys   []string
}

func (s *bySerialization) Len() int           { return len(s.values) }
func (s *bySerialization) Less(i, j int) bool { return s.keys[i] < s.keys[j] }
func (s *bySerialization) Swap(i, j int) {
	s.values[i], s.values[j] = s.values[j], s.values[i]
	s.keys[i], s.keys[j] = s.keys[j], s.keys[i]
}
