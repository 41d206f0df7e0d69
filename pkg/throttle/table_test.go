package throttle

import (
	"encoding/json"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func ceiling(n int) *int { return &n }

// skeTable mirrors the published wait policy of the hosted server:
// up to 1 call may run without waiting, up to 99 calls wait 2s, up to
// 899 calls wait 5s, anything larger waits 45s.
func skeTable() Table {
	return New(
		Band{Wait: 0, Ceiling: ceiling(1)},
		Band{Wait: 2, Ceiling: ceiling(99)},
		Band{Wait: 5, Ceiling: ceiling(899)},
		Band{Wait: 45, Ceiling: nil},
	)
}

func TestTable_Resolve(t *testing.T) {
	tests := []struct {
		name    string
		pending int
		want    time.Duration
	}{
		{name: "single call no wait", pending: 1, want: 0},
		{name: "small batch", pending: 50, want: 2 * time.Second},
		{name: "band boundary inclusive", pending: 99, want: 2 * time.Second},
		{name: "medium batch", pending: 500, want: 5 * time.Second},
		{name: "open-ended fallback", pending: 5000, want: 45 * time.Second},
		{name: "zero pending", pending: 0, want: 0},
	}

	table := skeTable()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := table.Resolve(tt.pending)
			if got != tt.want {
				t.Errorf("Resolve(%d) = %v, want %v", tt.pending, got, tt.want)
			}
		})
	}
}

func TestTable_Resolve_Empty(t *testing.T) {
	var table Table
	if !table.IsZero() {
		t.Error("zero table should report IsZero")
	}
	if got := table.Resolve(100); got != 0 {
		t.Errorf("empty table Resolve = %v, want 0", got)
	}
}

func TestTable_Resolve_UniformAcrossBatch(t *testing.T) {
	table := skeTable()
	first := table.Resolve(500)
	for i := 0; i < 10; i++ {
		if got := table.Resolve(500); got != first {
			t.Fatalf("Resolve not stable: got %v, want %v", got, first)
		}
	}
}

func TestTable_UnmarshalYAML(t *testing.T) {
	var table Table
	if err := yaml.Unmarshal([]byte(`{"0": 1, "2": 99, "5": 899, "45": null}`), &table); err != nil {
		t.Fatalf("UnmarshalYAML: %v", err)
	}
	if got := table.Resolve(5000); got != 45*time.Second {
		t.Errorf("Resolve(5000) = %v, want 45s", got)
	}
	if got := table.Resolve(1); got != 0 {
		t.Errorf("Resolve(1) = %v, want 0", got)
	}
}

func TestTable_UnmarshalJSON(t *testing.T) {
	var table Table
	if err := json.Unmarshal([]byte(`{"0.5": 9, "4": 899, "45": null}`), &table); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}
	if got := table.Resolve(5); got != 500*time.Millisecond {
		t.Errorf("Resolve(5) = %v, want 500ms", got)
	}
	if got := table.Resolve(100); got != 4*time.Second {
		t.Errorf("Resolve(100) = %v, want 4s", got)
	}
}

func TestTable_UnmarshalJSON_BadWait(t *testing.T) {
	var table Table
	if err := json.Unmarshal([]byte(`{"fast": 9}`), &table); err == nil {
		t.Error("expected error for non-numeric wait key")
	}
}

func TestTable_MarshalRoundTrip(t *testing.T) {
	data, err := json.Marshal(skeTable())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var table Table
	if err := json.Unmarshal(data, &table); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got := table.Resolve(500); got != 5*time.Second {
		t.Errorf("round-tripped Resolve(500) = %v, want 5s", got)
	}
}
