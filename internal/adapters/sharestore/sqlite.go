// Package sharestore persists public share preferences in SQLite.
package sharestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/okian/quotient/internal/domain/share"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Store is a share.Gate backed by a single SQLite table.
type Store struct {
	conn *sql.DB
	now  func() time.Time
}

var _ share.Gate = (*Store)(nil)

// Open opens or creates the preference database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = MemoryPath
	}
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create share db directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open share database: %w", err)
	}
	// Every pooled connection to :memory: is a separate database.
	conn.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &Store{conn: conn, now: time.Now}
	if err := s.initializeSchema(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize share schema: %w", err)
	}
	return s, nil
}

func (s *Store) initializeSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS share_preferences (
			fid INTEGER PRIMARY KEY,
			enabled INTEGER NOT NULL,
			updated_at TEXT NOT NULL
		);
	`
	_, err := s.conn.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// Enabled implements share.Gate. Accounts without a row are enabled.
func (s *Store) Enabled(ctx context.Context, fid uint64) (bool, error) {
	if fid == 0 {
		return false, share.ErrInvalidFID
	}
	var enabled bool
	err := s.conn.QueryRowContext(ctx,
		`SELECT enabled FROM share_preferences WHERE fid = ?`, int64(fid),
	).Scan(&enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("share lookup %d: %w", fid, err)
	}
	return enabled, nil
}

// SetEnabled implements share.Gate.
func (s *Store) SetEnabled(ctx context.Context, fid uint64, enabled bool) error {
	if fid == 0 {
		return share.ErrInvalidFID
	}
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO share_preferences (fid, enabled, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(fid) DO UPDATE SET enabled = excluded.enabled, updated_at = excluded.updated_at
	`, int64(fid), enabled, s.now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("share update %d: %w", fid, err)
	}
	return nil
}

// Count returns how many accounts have stated a preference.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM share_preferences`).Scan(&n); err != nil {
		return 0, fmt.Errorf("share count: %w", err)
	}
	return n, nil
}
