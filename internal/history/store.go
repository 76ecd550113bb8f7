// Package history persists completed predictions in SQLite.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"predictd/pkg/types"
)

// DefaultLimit is used by Recent when limit <= 0.
const DefaultLimit = 50

// MaxLimit caps a single Recent query.
const MaxLimit = 1000

// Store wraps the SQLite database used for the prediction log.
type Store struct {
	db *sql.DB
}

// Open initializes the store at path. ":memory:" opens a private in-memory
// database.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("history DSN is required")
	}
	conn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
		conn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	}
	db, err := sql.Open("sqlite", conn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite history: %w", err)
	}
	// One writer; also keeps an in-memory database on a single connection.
	db.SetMaxOpenConns(1)
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS predictions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			request_id TEXT,
			model_id TEXT NOT NULL,
			status TEXT NOT NULL,
			label TEXT,
			confidence REAL,
			error TEXT,
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_predictions_model ON predictions(model_id);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("schema apply failed: %w", err)
		}
	}
	return nil
}

// Close shuts down the store.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record appends an entry and fills in its ID and CreatedAt.
func (s *Store) Record(ctx context.Context, e *types.HistoryEntry) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO predictions (request_id, model_id, status, label, confidence, error, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.RequestID, e.ModelID, e.Status, e.Label, e.Confidence, e.Error, now.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("record prediction: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		e.ID = id
	}
	e.CreatedAt = now.Unix()
	return nil
}

// Recent returns the newest entries first.
func (s *Store) Recent(ctx context.Context, limit int) ([]types.HistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, request_id, model_id, status, label, confidence, error, created_at FROM predictions ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := []types.HistoryEntry{}
	for rows.Next() {
		var (
			e                    types.HistoryEntry
			reqID, label, errMsg sql.NullString
			confidence           sql.NullFloat64
			createdNanos         int64
		)
		if err := rows.Scan(&e.ID, &reqID, &e.ModelID, &e.Status, &label, &confidence, &errMsg, &createdNanos); err != nil {
			return nil, err
		}
		e.RequestID = reqID.String
		e.Label = label.String
		e.Confidence = confidence.Float64
		e.Error = errMsg.String
		e.CreatedAt = time.Unix(0, createdNanos).Unix()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
