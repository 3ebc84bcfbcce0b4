// ABOUTME: SQLite implementation of the audit Store using modernc.org/sqlite.
// ABOUTME: Persists audit_log and data_access_log tables with automatic schema creation.

package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// tsFormat is fixed-width so the TEXT ts columns sort lexicographically in
// true time order. RFC3339Nano trims trailing zeros, which breaks ORDER BY
// and range comparisons for entries within the same second.
const tsFormat = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) the audit database at path.
// Parent directories are created if needed.
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "audit")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating audit directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening audit database: %w", err)
	}

	// WAL lets concurrent invocations append without blocking each other
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating audit schema: %w", err)
	}

	logger.Info("audit store initialized", "path", path)
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS audit_log (
			audit_id   TEXT PRIMARY KEY,
			ts         TEXT NOT NULL,
			actor      TEXT,
			action     TEXT NOT NULL,
			resource   TEXT,
			details    TEXT,
			flags_json TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_audit_log_ts ON audit_log(ts);
		CREATE INDEX IF NOT EXISTS idx_audit_log_action ON audit_log(action);

		CREATE TABLE IF NOT EXISTS data_access_log (
			access_id   TEXT PRIMARY KEY,
			ts          TEXT NOT NULL,
			data_type   TEXT NOT NULL,
			access_type TEXT NOT NULL,
			actor       TEXT,
			flags_json  TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_data_access_log_ts ON data_access_log(ts);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append writes a new entry to the audit log. ID and Timestamp are
// generated if unset.
func (s *SQLiteStore) Append(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	flagsJSON, err := marshalFlags(e.Flags)
	if err != nil {
		return fmt.Errorf("marshaling audit flags: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_log (audit_id, ts, actor, action, resource, details, flags_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.Timestamp.UTC().Format(tsFormat),
		e.Actor,
		e.Action,
		e.Resource,
		e.Details,
		flagsJSON,
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}

	s.logger.Debug("appended audit entry", "id", e.ID, "action", e.Action, "resource", e.Resource)
	return nil
}

// normalizeLimit applies default (100) and cap (1000) to a list limit.
func normalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return 100
	case limit > 1000:
		return 1000
	default:
		return limit
	}
}

// List returns matching entries, newest first.
func (s *SQLiteStore) List(ctx context.Context, f Filter) ([]Entry, error) {
	var sinceStr, untilStr, actionStr *string
	if f.Since != nil {
		v := f.Since.UTC().Format(tsFormat)
		sinceStr = &v
	}
	if f.Until != nil {
		v := f.Until.UTC().Format(tsFormat)
		untilStr = &v
	}
	if f.Action != "" {
		actionStr = &f.Action
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT audit_id, ts, actor, action, resource, details, flags_json
		FROM audit_log
		WHERE (? IS NULL OR ts >= ?)
		  AND (? IS NULL OR ts <= ?)
		  AND (? IS NULL OR action = ?)
		ORDER BY ts DESC
		LIMIT ?`,
		sinceStr, sinceStr,
		untilStr, untilStr,
		actionStr, actionStr,
		normalizeLimit(f.Limit),
	)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			tsStr     string
			flagsJSON sql.NullString
		)
		if err := rows.Scan(&e.ID, &tsStr, &e.Actor, &e.Action, &e.Resource, &e.Details, &flagsJSON); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		e.Timestamp, err = time.Parse(tsFormat, tsStr)
		if err != nil {
			return nil, fmt.Errorf("parsing audit timestamp: %w", err)
		}
		if flagsJSON.Valid && flagsJSON.String != "" {
			if err := json.Unmarshal([]byte(flagsJSON.String), &e.Flags); err != nil {
				return nil, fmt.Errorf("unmarshaling audit flags: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// RecordAccess writes a data-access record for compliance monitoring.
func (s *SQLiteStore) RecordAccess(ctx context.Context, a *Access) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}

	flagsJSON, err := marshalFlags(a.Flags)
	if err != nil {
		return fmt.Errorf("marshaling access flags: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO data_access_log (access_id, ts, data_type, access_type, actor, flags_json)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID,
		a.Timestamp.UTC().Format(tsFormat),
		a.DataType,
		a.AccessType,
		a.Actor,
		flagsJSON,
	)
	if err != nil {
		return fmt.Errorf("inserting access record: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func marshalFlags(flags []Flag) (*string, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(flags)
	if err != nil {
		return nil, err
	}
	str := string(data)
	return &str, nil
}
