package fingerprint

import (
	"encoding/json"
	"testing"
)

var credentials = []string{"api_key", "username"}

func mustSum(t *testing.T, params map[string]any) string {
	t.Helper()
	fp, err := Sum(params, credentials)
	if err != nil {
		t.Fatalf("Sum: %v", err)
	}
	return fp
}

func TestSum_Width(t *testing.T) {
	fp := mustSum(t, map[string]any{"corpname": "susanne"})
	if len(fp) != Size*2 {
		t.Errorf("fingerprint %q has length %d, want %d", fp, len(fp), Size*2)
	}
}

func TestSum_CredentialInsensitive(t *testing.T) {
	base := map[string]any{"corpname": "susanne", "q": `alemma,"bird"`}
	withCreds := map[string]any{
		"corpname": "susanne",
		"q":        `alemma,"bird"`,
		"api_key":  "secret",
		"username": "someone",
	}
	if mustSum(t, base) != mustSum(t, withCreds) {
		t.Error("credential fields must not affect the fingerprint")
	}
}

func TestSum_WhitespaceInsensitive(t *testing.T) {
	a := map[string]any{"corpname": "susanne", "q": `alemma,"bird"`}
	b := map[string]any{"corpname": "  susanne  ", "q": ` alemma,"bird" `}
	if mustSum(t, a) != mustSum(t, b) {
		t.Error("incidental whitespace must not affect the fingerprint")
	}
}

func TestSum_ListOrderInsensitive(t *testing.T) {
	a := map[string]any{"corpname": "susanne", "fcrit": []any{"doc.file 0", "doc.n 0"}}
	b := map[string]any{"corpname": "susanne", "fcrit": []any{"doc.n 0", "doc.file 0"}}
	if mustSum(t, a) != mustSum(t, b) {
		t.Error("list element order must not affect the fingerprint")
	}
}

func TestSum_NestedMapKeyOrderInsensitive(t *testing.T) {
	// Decode from JSON so map iteration order differs between runs.
	var a, b map[string]any
	if err := json.Unmarshal([]byte(`{"corpname":"susanne","opts":{"x":1,"y":2}}`), &a); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(`{"opts":{"y":2,"x":1},"corpname":"susanne"}`), &b); err != nil {
		t.Fatal(err)
	}
	if mustSum(t, a) != mustSum(t, b) {
		t.Error("map key order must not affect the fingerprint")
	}
}

func TestSum_SensitiveToValueChange(t *testing.T) {
	a := map[string]any{"corpname": "susanne", "q": `alemma,"bird"`}
	b := map[string]any{"corpname": "susanne", "q": `alemma,"cat"`}
	if mustSum(t, a) == mustSum(t, b) {
		t.Error("changing a non-credential value must change the fingerprint")
	}
}

func TestSum_SensitiveToKeyAddition(t *testing.T) {
	a := map[string]any{"corpname": "susanne"}
	b := map[string]any{"corpname": "susanne", "fpage": 2}
	if mustSum(t, a) == mustSum(t, b) {
		t.Error("adding a parameter must change the fingerprint")
	}
}

func TestSum_Pure(t *testing.T) {
	params := map[string]any{
		"corpname": " susanne ",
		"api_key":  "secret",
		"fcrit":    []any{"b", "a"},
	}
	_ = mustSum(t, params)

	if params["corpname"] != " susanne " {
		t.Error("Sum must not trim the caller's strings")
	}
	if _, ok := params["api_key"]; !ok {
		t.Error("Sum must not remove the caller's credential keys")
	}
	fcrit := params["fcrit"].([]any)
	if fcrit[0] != "b" || fcrit[1] != "a" {
		t.Error("Sum must not reorder the caller's slices")
	}
}

func TestSum_Deterministic(t *testing.T) {
	params := map[string]any{
		"corpname": "susanne",
		"fcrit":    []any{"doc.file 0", "doc.n 0"},
		"opts":     map[string]any{"a": 1, "b": []any{"y", "x"}},
	}
	first := mustSum(t, params)
	for i := 0; i < 20; i++ {
		if got := mustSum(t, params); got != first {
			t.Fatalf("fingerprint not deterministic: %q vs %q", got, first)
		}
	}
}

func TestCanonicalize_NumbersViaJSON(t *testing.T) {
	// int and float64 representations of the same number serialize
	// identically after the JSON round trip.
	a := map[string]any{"fpage": 1}
	b := map[string]any{"fpage": float64(1)}
	if mustSum(t, a) != mustSum(t, b) {
		t.Error("equivalent numeric representations must hash identically")
	}
}

func TestCanonicalize_StringSlices(t *testing.T) {
	a := map[string]any{"fcrit": []string{"b", "a"}}
	b := map[string]any{"fcrit": []any{"a", "b"}}
	if mustSum(t, a) != mustSum(t, b) {
		t.Error("[]string and []any inputs must canonicalize identically")
	}
}
