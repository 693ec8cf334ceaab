// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// OutcomeOK marks a successful invocation. Failures store the error kind.
const OutcomeOK = "ok"

// SchemaVersion tracks the history database schema.
const SchemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS invocations (
    id TEXT PRIMARY KEY,
    tool TEXT NOT NULL,
    class TEXT NOT NULL,
    fingerprint TEXT NOT NULL,  -- arguments are never stored, only their hash
    outcome TEXT NOT NULL,      -- "ok" or the error kind
    cached INTEGER NOT NULL DEFAULT 0,
    duration_ms INTEGER NOT NULL,
    at INTEGER NOT NULL         -- Unix milliseconds
);

CREATE INDEX IF NOT EXISTS idx_invocations_at ON invocations(at);
CREATE INDEX IF NOT EXISTS idx_invocations_tool ON invocations(tool);
`

// Entry is one recorded tool invocation.
type Entry struct {
	ID          string        `json:"id"`
	Tool        string        `json:"tool"`
	Class       string        `json:"class"`
	Fingerprint string        `json:"fingerprint"`
	Outcome     string        `json:"outcome"`
	Cached      bool          `json:"cached"`
	Duration    time.Duration `json:"duration"`
	At          time.Time     `json:"at"`
}

// ToolSummary aggregates the history of one tool.
type ToolSummary struct {
	Tool      string        `json:"tool"`
	Calls     int           `json:"calls"`
	Errors    int           `json:"errors"`
	CacheHits int           `json:"cache_hits"`
	AvgTime   time.Duration `json:"avg_time"`
	LastAt    time.Time     `json:"last_at"`
}

// =============================================================================
// HISTORY
// =============================================================================

// History stores invocations in SQLite.
type History struct {
	db *sql.DB
}

// Open opens or creates the history database at path.
func Open(path string) (*History, error) {
	if path == "" {
		return nil, errors.New("history path cannot be empty")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if _, err := db.Exec(`INSERT OR IGNORE INTO metadata(key, value) VALUES ('schema_version', ?)`, fmt.Sprint(SchemaVersion)); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize metadata: %w", err)
	}

	return &History{db: db}, nil
}

// Close closes the database.
func (h *History) Close() error {
	return h.db.Close()
}

// Record inserts e, assigning an ID and timestamp when missing.
func (h *History) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	if e.Outcome == "" {
		e.Outcome = OutcomeOK
	}
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO invocations (id, tool, class, fingerprint, outcome, cached, duration_ms, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Tool, e.Class, e.Fingerprint, e.Outcome, boolToInt(e.Cached),
		e.Duration.Milliseconds(), e.At.UnixMilli())
	if err != nil {
		return fmt.Errorf("record invocation: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first. tool filters by name when
// not empty.
func (h *History) Recent(ctx context.Context, limit int, tool string) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, tool, class, fingerprint, outcome, cached, duration_ms, at FROM invocations`
	args := []any{}
	if tool != "" {
		query += ` WHERE tool = ?`
		args = append(args, tool)
	}
	query += ` ORDER BY at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var cached int
		var durMs, atMs int64
		if err := rows.Scan(&e.ID, &e.Tool, &e.Class, &e.Fingerprint, &e.Outcome, &cached, &durMs, &atMs); err != nil {
			return nil, err
		}
		e.Cached = cached != 0
		e.Duration = time.Duration(durMs) * time.Millisecond
		e.At = time.UnixMilli(atMs).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Summary aggregates the history per tool, ordered by tool name.
func (h *History) Summary(ctx context.Context) ([]ToolSummary, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT tool,
		       COUNT(*),
		       SUM(CASE WHEN outcome != ? THEN 1 ELSE 0 END),
		       SUM(cached),
		       AVG(duration_ms),
		       MAX(at)
		FROM invocations
		GROUP BY tool
		ORDER BY tool`, OutcomeOK)
	if err != nil {
		return nil, fmt.Errorf("summarize history: %w", err)
	}
	defer rows.Close()

	out := []ToolSummary{}
	for rows.Next() {
		var s ToolSummary
		var avg float64
		var last int64
		if err := rows.Scan(&s.Tool, &s.Calls, &s.Errors, &s.CacheHits, &avg, &last); err != nil {
			return nil, err
		}
		s.AvgTime = time.Duration(avg * float64(time.Millisecond))
		s.LastAt = time.UnixMilli(last).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

// Prune deletes entries older than before and returns how many were removed.
func (h *History) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := h.db.ExecContext(ctx, `DELETE FROM invocations WHERE at < ?`, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return res.RowsAffected()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
