// Package history keeps a SQLite-backed log of analytics snapshots so
// structural-health trends survive restarts.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/trellis/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS analytics_snapshots (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	taken_at       DATETIME NOT NULL,
	total_modules  INTEGER NOT NULL,
	total_pages    INTEGER NOT NULL,
	total_subpages INTEGER NOT NULL,
	orphaned_pages INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_taken_at ON analytics_snapshots(taken_at);
`

// Snapshot is one recorded analytics run.
type Snapshot struct {
	ID            int64     `json:"id"`
	TakenAt       time.Time `json:"taken_at"`
	TotalModules  int       `json:"total_modules"`
	TotalPages    int       `json:"total_pages"`
	TotalSubpages int       `json:"total_subpages"`
	OrphanedPages int       `json:"orphaned_pages"`
}

// Store wraps a sql.DB with snapshot operations.
type Store struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*Store, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: apply schema: %w", err)
	}
	return &Store{conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Record appends a snapshot row for the given report.
func (s *Store) Record(r *models.AnalyticsReport) error {
	_, err := s.conn.Exec(`
		INSERT INTO analytics_snapshots
			(taken_at, total_modules, total_pages, total_subpages, orphaned_pages)
		VALUES (?, ?, ?, ?, ?)
	`, r.GeneratedAt, r.TotalModules, r.TotalPages, r.TotalSubpages, len(r.OrphanedPages))
	if err != nil {
		return fmt.Errorf("history: record snapshot: %w", err)
	}
	return nil
}

// Recent returns up to limit snapshots, newest first.
func (s *Store) Recent(limit int) ([]Snapshot, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := s.conn.Query(`
		SELECT id, taken_at, total_modules, total_pages, total_subpages, orphaned_pages
		FROM analytics_snapshots
		ORDER BY taken_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query snapshots: %w", err)
	}
	defer rows.Close()

	out := []Snapshot{}
	for rows.Next() {
		var snap Snapshot
		if err := rows.Scan(&snap.ID, &snap.TakenAt, &snap.TotalModules,
			&snap.TotalPages, &snap.TotalSubpages, &snap.OrphanedPages); err != nil {
			return nil, fmt.Errorf("history: scan snapshot: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}
