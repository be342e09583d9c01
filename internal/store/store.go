// Package store persists captured exchanges in a SQLite database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/unkn0wn-root/reqlens/internal/record"
)

var ErrNotFound = errors.New("store: record not found")

const defaultListLimit = 200

const schema = `
CREATE TABLE IF NOT EXISTS exchanges (
	id          TEXT PRIMARY KEY,
	parent_id   TEXT NOT NULL DEFAULT '',
	received_at INTEGER NOT NULL DEFAULT 0,
	seq         INTEGER NOT NULL,
	method      TEXT NOT NULL,
	url         TEXT NOT NULL,
	status      INTEGER NOT NULL DEFAULT 0,
	completed   INTEGER NOT NULL DEFAULT 0,
	data        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS exchanges_parent ON exchanges(parent_id);
CREATE INDEX IF NOT EXISTS exchanges_order ON exchanges(received_at DESC, seq DESC);
`

// Summary is the listing view of a stored exchange.
type Summary struct {
	ID         string
	ParentID   string
	ReceivedAt time.Time
	Method     string
	URL        string
	StatusCode int
	Completed  bool
}

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	// a single connection keeps writes serialized
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init store schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save inserts or replaces ex and returns its ID, assigning one when empty.
func (s *Store) Save(ctx context.Context, ex record.Exchange) (string, error) {
	if strings.TrimSpace(ex.Record.ID) == "" {
		ex.Record.ID = uuid.NewString()
	}
	if err := ex.Validate(); err != nil {
		return "", err
	}
	data, err := json.Marshal(ex)
	if err != nil {
		return "", fmt.Errorf("encode exchange %s: %w", ex.Record.ID, err)
	}

	rec := ex.Record
	var received int64
	if !rec.ReceivedAt.IsZero() {
		received = rec.ReceivedAt.UnixNano()
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO exchanges (id, parent_id, received_at, seq, method, url, status, completed, data)
VALUES (?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM exchanges), ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	parent_id = excluded.parent_id,
	received_at = excluded.received_at,
	method = excluded.method,
	url = excluded.url,
	status = excluded.status,
	completed = excluded.completed,
	data = excluded.data`,
		rec.ID, rec.ParentID, received, rec.Method, record.BuildURL(rec),
		rec.ResponseStatusCode, boolInt(rec.IsCompleted), string(data),
	)
	if err != nil {
		return "", fmt.Errorf("save exchange %s: %w", rec.ID, err)
	}
	return rec.ID, nil
}

func (s *Store) Get(ctx context.Context, id string) (record.Exchange, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM exchanges WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return record.Exchange{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return record.Exchange{}, fmt.Errorf("load exchange %s: %w", id, err)
	}

	var ex record.Exchange
	if err := json.Unmarshal([]byte(data), &ex); err != nil {
		return record.Exchange{}, fmt.Errorf("decode exchange %s: %w", id, err)
	}
	return ex, nil
}

// List returns summaries newest first. Exchanges without a receive time sort
// after timed ones, most recently saved first.
func (s *Store) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.query(ctx, `
SELECT id, parent_id, received_at, method, url, status, completed FROM exchanges
ORDER BY received_at = 0, received_at DESC, seq DESC LIMIT ?`, limit)
}

func (s *Store) Children(ctx context.Context, parentID string) ([]Summary, error) {
	if strings.TrimSpace(parentID) == "" {
		return nil, nil
	}
	return s.query(ctx, `
SELECT id, parent_id, received_at, method, url, status, completed FROM exchanges
WHERE parent_id = ? ORDER BY received_at, seq`, parentID)
}

func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM exchanges WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete exchange %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query exchanges: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum       Summary
			received  int64
			completed int
		)
		if err := rows.Scan(
			&sum.ID, &sum.ParentID, &received, &sum.Method, &sum.URL, &sum.StatusCode, &completed,
		); err != nil {
			return nil, fmt.Errorf("scan exchange: %w", err)
		}
		if received != 0 {
			sum.ReceivedAt = time.Unix(0, received).UTC()
		}
		sum.Completed = completed != 0
		out = append(out, sum)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
