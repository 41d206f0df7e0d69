// Package config loads the server registry: per-server host, credential
// field names, concurrency capability and wait policy. Sources are a map,
// an environment variable, a YAML/JSON file, or a raw string.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/engisalor/sketch-grammar-explorer/pkg/throttle"
)

// DefaultCredentialKeys are the parameter names carrying credentials when a
// server does not configure its own. They are excluded from fingerprints
// and redacted from everything persisted.
var DefaultCredentialKeys = []string{"api_key", "username"}

// Server describes one remote corpus-query endpoint.
type Server struct {
	// Host is the API base URL, e.g. http://localhost:10070/bonito/run.cgi
	Host string `json:"host" yaml:"host"`

	// CredentialKeys are the parameter names treated as credentials.
	// Defaults to api_key and username.
	CredentialKeys []string `json:"credential_keys,omitempty" yaml:"credential_keys,omitempty"`

	// Asynchronous reports whether the server permits concurrent dispatch.
	Asynchronous bool `json:"asynchronous,omitempty" yaml:"asynchronous,omitempty"`

	// Wait is the server's throttle policy. A zero table means no waiting.
	Wait throttle.Table `json:"wait,omitempty" yaml:"wait,omitempty"`
}

// Credentials returns the server's credential key set, falling back to the
// defaults.
func (s Server) Credentials() []string {
	if len(s.CredentialKeys) > 0 {
		return s.CredentialKeys
	}
	return DefaultCredentialKeys
}

// Registry maps server names to their configuration.
type Registry map[string]Server

// Get resolves a server by name.
func (r Registry) Get(name string) (Server, error) {
	s, ok := r[name]
	if !ok {
		names := make([]string, 0, len(r))
		for n := range r {
			names = append(names, n)
		}
		return Server{}, fmt.Errorf("unknown server %q, configured servers: %v", name, names)
	}
	return s, nil
}

// Default returns the stock registry: a local unthrottled instance that
// allows concurrency and the hosted service, which is sequential-only and
// throttled.
func Default() Registry {
	return Registry{
		"noske": {
			Host:         "http://localhost:10070/bonito/run.cgi",
			Asynchronous: true,
		},
		"ske": {
			Host: "https://api.sketchengine.eu/bonito/run.cgi",
			Wait: throttle.New(
				throttle.Band{Wait: 0, Ceiling: intPtr(1)},
				throttle.Band{Wait: 2, Ceiling: intPtr(99)},
				throttle.Band{Wait: 5, Ceiling: intPtr(899)},
				throttle.Band{Wait: 45, Ceiling: nil},
			),
		},
	}
}

// Load resolves a registry from any supported source, in this priority:
// a Registry/map value, an UPPERCASE environment variable name holding
// JSON, a *.yml/*.yaml/*.json file path, or a raw JSON/YAML string.
func Load(source any) (Registry, error) {
	switch src := source.(type) {
	case Registry:
		return src, nil
	case map[string]Server:
		return Registry(src), nil
	case string:
		trimmed := strings.TrimSpace(src)
		switch {
		case trimmed == "":
			return nil, fmt.Errorf("empty config source")
		case trimmed == strings.ToUpper(trimmed) && !strings.ContainsAny(trimmed, "{:"):
			return FromEnv(trimmed)
		case hasConfigExt(trimmed):
			return FromFile(trimmed)
		default:
			return FromString(trimmed)
		}
	default:
		return nil, fmt.Errorf("unsupported config source type %T", source)
	}
}

// FromFile loads a registry from a YAML or JSON file.
func FromFile(path string) (Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	switch ext := filepath.Ext(path); ext {
	case ".yml", ".yaml":
		var r Registry
		if err := yaml.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return r, nil
	case ".json":
		var r Registry
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return r, nil
	default:
		return nil, fmt.Errorf("config file format must be .yml, .yaml, or .json, got %q", ext)
	}
}

// FromEnv loads a registry from a JSON-formatted environment variable.
func FromEnv(name string) (Registry, error) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return nil, fmt.Errorf("environment variable %s not set", name)
	}
	return FromString(v)
}

// FromString parses a registry from a JSON string, falling back to YAML.
func FromString(s string) (Registry, error) {
	var r Registry
	if err := json.Unmarshal([]byte(s), &r); err == nil {
		return r, nil
	}
	if err := yaml.Unmarshal([]byte(s), &r); err != nil {
		return nil, fmt.Errorf("parse config string: %w", err)
	}
	return r, nil
}

func hasConfigExt(s string) bool {
	switch filepath.Ext(s) {
	case ".yml", ".yaml", ".json":
		return true
	}
	return false
}

func intPtr(n int) *int { return &n }
