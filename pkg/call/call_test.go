package call

import (
	"errors"
	"testing"
)

func TestNew_UnknownType(t *testing.T) {
	_, err := New(Type("wsgrep"), nil)
	var unknownErr *UnknownTypeError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("New with unknown type: got %v, want UnknownTypeError", err)
	}
}

func TestNew_ViewDefaultsAsyn(t *testing.T) {
	spec, err := New(TypeView, map[string]any{"corpname": "susanne", "q": `q"cat"`})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if spec.Params["asyn"] != 0 {
		t.Errorf("view call asyn = %v, want 0", spec.Params["asyn"])
	}

	spec, err = New(TypeView, map[string]any{"corpname": "susanne", "q": `q"cat"`, "asyn": 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if spec.Params["asyn"] != 1 {
		t.Errorf("explicit asyn overwritten: got %v, want 1", spec.Params["asyn"])
	}
}

func TestParseType(t *testing.T) {
	typ, err := ParseType(" Freqs ")
	if err != nil {
		t.Fatalf("ParseType: %v", err)
	}
	if typ != TypeFreqs {
		t.Errorf("ParseType = %v, want %v", typ, TypeFreqs)
	}
	if _, err := ParseType("nosuch"); err == nil {
		t.Error("ParseType should reject unknown types")
	}
}

func TestSpec_Validate(t *testing.T) {
	tests := []struct {
		name    string
		typ     Type
		params  map[string]any
		wantKey string
		ok      bool
	}{
		{
			name:   "corp_info minimal",
			typ:    TypeCorpInfo,
			params: map[string]any{"corpname": "susanne"},
			ok:     true,
		},
		{
			name:    "corp_info missing corpname",
			typ:     TypeCorpInfo,
			params:  map[string]any{},
			wantKey: "corpname",
		},
		{
			name:    "freqs missing fcrit",
			typ:     TypeFreqs,
			params:  map[string]any{"corpname": "susanne", "q": `alemma,"bird"`},
			wantKey: "fcrit",
		},
		{
			name:    "empty string counts as missing",
			typ:     TypeCollx,
			params:  map[string]any{"corpname": "susanne", "q": "   "},
			wantKey: "q",
		},
		{
			name:    "empty list counts as missing",
			typ:     TypeFreqs,
			params:  map[string]any{"corpname": "susanne", "q": "x", "fcrit": []any{}},
			wantKey: "fcrit",
		},
		{
			name:   "wordlist complete",
			typ:    TypeWordlist,
			params: map[string]any{"corpname": "susanne", "wltype": "simple", "wlattr": "doc.file"},
			ok:     true,
		},
		{
			name:   "wsdiff complete",
			typ:    TypeWsdiff,
			params: map[string]any{"corpname": "susanne", "lemma": "walk", "lemma2": "run"},
			ok:     true,
		},
		{
			name:   "accepted format",
			typ:    TypeCorpInfo,
			params: map[string]any{"corpname": "susanne", "format": "csv"},
			ok:     true,
		},
		{
			name:   "rejected format",
			typ:    TypeCorpInfo,
			params: map[string]any{"corpname": "susanne", "format": "pdf"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := New(tt.typ, tt.params)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			err = spec.Validate()
			if tt.ok {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("Validate: got %v, want ValidationError", err)
			}
			if tt.wantKey != "" && vErr.Key != tt.wantKey {
				t.Errorf("ValidationError.Key = %q, want %q", vErr.Key, tt.wantKey)
			}
		})
	}
}

func TestSpec_Format(t *testing.T) {
	spec, _ := New(TypeCorpInfo, map[string]any{"corpname": "susanne"})
	if got := spec.Format(); got != "json" {
		t.Errorf("default format = %q, want json", got)
	}
	spec, _ = New(TypeCorpInfo, map[string]any{"corpname": "susanne", "format": "xml"})
	if got := spec.Format(); got != "xml" {
		t.Errorf("format = %q, want xml", got)
	}
}

func TestProject(t *testing.T) {
	body := map[string]any{"concsize": 42, "Lines": []any{}, "error": nil}

	narrowed := Project(body, []string{"concsize", "missing"})
	if len(narrowed) != 1 || narrowed["concsize"] != 42 {
		t.Errorf("Project = %v, want only concsize", narrowed)
	}
	if got := Project(body, nil); len(got) != len(body) {
		t.Error("empty keep set must return the full body")
	}
	if len(body) != 3 {
		t.Error("Project must not modify its input")
	}
}
