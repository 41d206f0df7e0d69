// Package call defines the parameterized request model for the corpus-query
// API: the closed set of call types, per-type required parameters, batch
// parameter propagation and response projection.
package call

import (
	"fmt"
	"sort"
	"strings"
)

// Type identifies one kind of API call. The set is closed: constructing a
// Spec for a type outside it fails immediately, before any network activity.
type Type string

const (
	TypeAttrVals        Type = "attr_vals"
	TypeCollx           Type = "collx"
	TypeCorpInfo        Type = "corp_info"
	TypeExtractKeywords Type = "extract_keywords"
	TypeFreqml          Type = "freqml"
	TypeFreqs           Type = "freqs"
	TypeFreqtt          Type = "freqtt"
	TypeSubcorp         Type = "subcorp"
	TypeThes            Type = "thes"
	TypeView            Type = "view"
	TypeWordlist        Type = "wordlist"
	TypeWsdiff          Type = "wsdiff"
	TypeWsketch         Type = "wsketch"
)

// requiredKeys maps each type to the parameters that must be present and
// non-empty before dispatch. corpname is required everywhere.
var requiredKeys = map[Type][]string{
	TypeAttrVals:        {"corpname", "avattr"},
	TypeCollx:           {"corpname", "q"},
	TypeCorpInfo:        {"corpname"},
	TypeExtractKeywords: {"corpname"},
	TypeFreqml:          {"corpname", "q", "fcrit"},
	TypeFreqs:           {"corpname", "q", "fcrit"},
	TypeFreqtt:          {"corpname", "q", "fcrit"},
	TypeSubcorp:         {"corpname"},
	TypeThes:            {"corpname", "lemma"},
	TypeView:            {"corpname", "q"},
	TypeWordlist:        {"corpname", "wltype", "wlattr"},
	TypeWsdiff:          {"corpname", "lemma", "lemma2"},
	TypeWsketch:         {"corpname", "lemma"},
}

// Formats lists the response encodings the service accepts. The default
// (structured, self-describing) format is json.
var Formats = []string{"json", "xml", "csv", "txt", "xlsx"}

// DefaultFormat is used when a Spec does not set the format parameter.
const DefaultFormat = "json"

// Types returns the closed call-type set, sorted.
func Types() []Type {
	out := make([]Type, 0, len(requiredKeys))
	for t := range requiredKeys {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseType resolves a string (case-insensitive) to a known Type.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := requiredKeys[t]; !ok {
		return "", &UnknownTypeError{Type: s}
	}
	return t, nil
}

// Spec is one request to the remote service: a call type plus its
// parameters, with optional pass-through metadata from the input source.
type Spec struct {
	Type   Type           `json:"type" yaml:"type"`
	Params map[string]any `json:"params" yaml:"params"`

	// Meta is opaque caller metadata persisted alongside the response.
	Meta any `json:"meta,omitempty" yaml:"meta,omitempty"`

	// Keep restricts which top-level response fields are persisted to the
	// external sink. Empty means keep everything.
	Keep []string `json:"keep,omitempty" yaml:"keep,omitempty"`
}

// New constructs a Spec, failing with UnknownTypeError for types outside
// the closed set. Params may be nil. A view call defaults asyn=0 so results
// are computed synchronously server-side.
func New(typ Type, params map[string]any) (*Spec, error) {
	if _, ok := requiredKeys[typ]; !ok {
		return nil, &UnknownTypeError{Type: string(typ)}
	}
	if params == nil {
		params = map[string]any{}
	}
	if typ == TypeView {
		if _, ok := params["asyn"]; !ok {
			params["asyn"] = 0
		}
	}
	return &Spec{Type: typ, Params: params}, nil
}

// Required returns the minimal key set for the Spec's type.
func (s *Spec) Required() []string {
	return requiredKeys[s.Type]
}

// Format returns the requested response format, defaulting to json.
func (s *Spec) Format() string {
	if f, ok := s.Params["format"].(string); ok && f != "" {
		return f
	}
	return DefaultFormat
}

// Validate checks that every required key is present and non-empty and that
// the requested format is accepted. A Spec that fails validation must never
// be dispatched.
func (s *Spec) Validate() error {
	if _, ok := requiredKeys[s.Type]; !ok {
		return &UnknownTypeError{Type: string(s.Type)}
	}
	if f, ok := s.Params["format"]; ok {
		str, isStr := f.(string)
		if !isStr || !formatAccepted(str) {
			return &ValidationError{
				Type:   s.Type,
				Reason: fmt.Sprintf("format must be one of %v, got %v", Formats, f),
			}
		}
	}
	for _, key := range requiredKeys[s.Type] {
		if empty(s.Params[key]) {
			return &ValidationError{Type: s.Type, Key: key, Reason: "required parameter missing or empty"}
		}
	}
	return nil
}

// String renders the Spec for logs and dry runs without leaking values
// beyond the parameter list.
func (s *Spec) String() string {
	keys := make([]string, 0, len(s.Params))
	for k := range s.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Sprintf("%s(%s)", strings.ToUpper(string(s.Type)), strings.Join(keys, ","))
}

func formatAccepted(f string) bool {
	for _, accepted := range Formats {
		if f == accepted {
			return true
		}
	}
	return false
}

// empty reports whether a parameter value counts as missing: nil, a blank
// string, or an empty slice/map.
func empty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []any:
		return len(val) == 0
	case []string:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	default:
		return false
	}
}
