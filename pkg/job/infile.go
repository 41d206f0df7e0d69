package job

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/engisalor/sketch-grammar-explorer/pkg/call"
)

// callRecord is the on-disk shape of one call definition. Both "type" and
// "call_type" are accepted for the type field.
type callRecord struct {
	Type     string         `json:"type" yaml:"type"`
	CallType string         `json:"call_type" yaml:"call_type"`
	Params   map[string]any `json:"params" yaml:"params"`
	Meta     any            `json:"meta,omitempty" yaml:"meta,omitempty"`
	Keep     []string       `json:"keep,omitempty" yaml:"keep,omitempty"`
}

// ReadCalls loads a batch definition from a JSON, YAML or JSON Lines file.
// JSON and YAML files hold a list of call records; JSON Lines holds one
// record per line. Records are returned in file order so parameter
// propagation sees them the way the author wrote them.
func ReadCalls(path string) ([]*call.Spec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calls file: %w", err)
	}

	var records []callRecord
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".yml", ".yaml":
		if err := yaml.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".jsonl":
		records, err = readLines(raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported calls file extension: %s", path)
	}

	specs := make([]*call.Spec, 0, len(records))
	for i, rec := range records {
		typ := rec.Type
		if typ == "" {
			typ = rec.CallType
		}
		parsed, err := call.ParseType(typ)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		spec, err := call.New(parsed, rec.Params)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		spec.Meta = rec.Meta
		spec.Keep = rec.Keep
		specs = append(specs, spec)
	}
	return specs, nil
}

func readLines(raw []byte) ([]callRecord, error) {
	var records []callRecord
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var rec callRecord
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
