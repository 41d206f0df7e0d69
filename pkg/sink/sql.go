package sink

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
)

// SQLSink stores records as rows via database/sql. The schema and
// placeholders work with SQLite (modernc.org/sqlite) and port to other
// engines with ?-style drivers.
type SQLSink struct {
	db     *sql.DB
	logger zerolog.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS calls (
	fingerprint TEXT PRIMARY KEY,
	source_id TEXT,
	call_type TEXT NOT NULL,
	label TEXT,
	created_at TIMESTAMP NOT NULL,
	params TEXT NOT NULL,
	meta TEXT,
	error TEXT,
	body BLOB
);
`

// NewSQLSink wraps an open database handle. The caller owns the handle's
// lifecycle.
func NewSQLSink(db *sql.DB, logger zerolog.Logger) (*SQLSink, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle is required")
	}
	return &SQLSink{db: db, logger: logger}, nil
}

// Init creates the calls table if it does not exist.
func (s *SQLSink) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create calls table: %w", err)
	}
	return nil
}

// Put upserts a record by fingerprint. Re-running a batch refreshes rows
// rather than duplicating them.
func (s *SQLSink) Put(ctx context.Context, fingerprint string, record *Record) error {
	if record == nil {
		return fmt.Errorf("record cannot be nil")
	}
	query := `
		INSERT INTO calls (fingerprint, source_id, call_type, label, created_at, params, meta, error, body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET
			source_id = excluded.source_id,
			call_type = excluded.call_type,
			label = excluded.label,
			created_at = excluded.created_at,
			params = excluded.params,
			meta = excluded.meta,
			error = excluded.error,
			body = excluded.body
	`
	_, err := s.db.ExecContext(ctx, query,
		fingerprint, record.SourceID, record.CallType, record.Label,
		record.CreatedAt, record.Params, record.Meta, nullable(record.Error), record.Body,
	)
	if err != nil {
		return fmt.Errorf("insert call record: %w", err)
	}
	s.logger.Debug().
		Str("fingerprint", fingerprint).
		Str("call_type", record.CallType).
		Msg("Record persisted")
	return nil
}

// Get reads a record back by fingerprint, mainly for tooling and tests.
func (s *SQLSink) Get(ctx context.Context, fingerprint string) (*Record, error) {
	query := `SELECT fingerprint, source_id, call_type, label, created_at, params, meta, error, body
		FROM calls WHERE fingerprint = ?`
	row := s.db.QueryRowContext(ctx, query, fingerprint)

	var r Record
	var errStr sql.NullString
	err := row.Scan(&r.Fingerprint, &r.SourceID, &r.CallType, &r.Label,
		&r.CreatedAt, &r.Params, &r.Meta, &errStr, &r.Body)
	if err != nil {
		return nil, err
	}
	r.Error = errStr.String
	return &r, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
