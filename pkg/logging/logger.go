// Package logging provides structured logging configuration using zerolog.
// Loggers are constructed explicitly and passed into components; only
// binaries call Setup.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger for a binary and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	var output io.Writer = cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Cache operations (hit/miss, fingerprint, backend)
//   - Parameter propagation and fingerprint assignment
//   - Per-call dispatch and persistence
//
// Info: Normal operation events
//   - Batch start/completion with hit/dispatch/error counts
//   - Resolved wait policy for a batch
//   - Cache clears
//
// Warn: Warning conditions that don't prevent operation
//   - Application-level errors reported by the service
//   - Corrupt cache artifacts treated as misses
//   - Sink write failures (the run continues)
//
// Error: Error conditions requiring attention
//   - Transport failures
//   - Batch halted by the halt flag
//   - Configuration errors
//
// Context Fields:
//   - call_type: API call kind (freqs, wordlist, ...)
//   - fingerprint: cache key of the call
//   - index: position of the call in its batch
//   - status: result class (cached, succeeded, transport_failed, application_error)
//   - wait: resolved inter-request wait
//   - server: server name from the registry
