// Package throttle maps batch sizes to the inter-request wait a server
// demands. Servers publish a wait table: each band pairs a wait (seconds)
// with the largest batch that may use it, and one open-ended band covers
// batches larger than every listed ceiling.
package throttle

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Band is one wait table row. A nil Ceiling marks the open-ended band
// applied when a batch exceeds every listed ceiling.
type Band struct {
	Wait    float64
	Ceiling *int
}

// Table is a server's wait policy, ordered by ascending wait.
type Table struct {
	bands []Band
}

// New builds a Table from wait->ceiling pairs.
func New(bands ...Band) Table {
	t := Table{bands: append([]Band(nil), bands...)}
	sort.Slice(t.bands, func(i, j int) bool { return t.bands[i].Wait < t.bands[j].Wait })
	return t
}

// IsZero reports whether the table has no bands (no throttling required).
func (t Table) IsZero() bool {
	return len(t.bands) == 0
}

// Resolve returns the wait to apply between each of pending uncached calls.
// Among all bands whose ceiling admits the batch, the smallest wait wins;
// when the batch exceeds every ceiling the largest configured wait applies.
// The result is fixed for the whole batch, never recomputed per call.
func (t Table) Resolve(pending int) time.Duration {
	if len(t.bands) == 0 || pending <= 0 {
		return 0
	}
	wait := -1.0
	max := 0.0
	for _, b := range t.bands {
		if b.Wait > max {
			max = b.Wait
		}
		if b.Ceiling == nil {
			continue
		}
		if pending <= *b.Ceiling && (wait < 0 || b.Wait < wait) {
			wait = b.Wait
		}
	}
	if wait < 0 {
		wait = max
	}
	return time.Duration(wait * float64(time.Second))
}

// fromStringMap converts the serialized shape {"0": 1, "2": 99, "45": null}
// into bands. Keys are waits in seconds, values are batch ceilings.
func fromStringMap(m map[string]*int) (Table, error) {
	bands := make([]Band, 0, len(m))
	for k, v := range m {
		w, err := strconv.ParseFloat(k, 64)
		if err != nil {
			return Table{}, fmt.Errorf("parse wait %q: %w", k, err)
		}
		if w < 0 {
			return Table{}, fmt.Errorf("negative wait %q", k)
		}
		bands = append(bands, Band{Wait: w, Ceiling: v})
	}
	return New(bands...), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *Table) UnmarshalYAML(value *yaml.Node) error {
	var m map[string]*int
	if err := value.Decode(&m); err != nil {
		return err
	}
	parsed, err := fromStringMap(m)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Table) UnmarshalJSON(data []byte) error {
	var m map[string]*int
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	parsed, err := fromStringMap(m)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalJSON implements json.Marshaler, producing the serialized shape
// the registry files use.
func (t Table) MarshalJSON() ([]byte, error) {
	m := make(map[string]*int, len(t.bands))
	for _, b := range t.bands {
		m[strconv.FormatFloat(b.Wait, 'f', -1, 64)] = b.Ceiling
	}
	return json.Marshal(m)
}
