// ABOUTME: SQLite implementation of the ChannelDefaults interface using modernc.org/sqlite
// ABOUTME: Provides channel default project persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements ChannelDefaults using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if path == ":memory:" {
		// Each connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS channel_defaults (
			channel_id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			project_title TEXT NOT NULL,
			set_by TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SetChannelDefault creates or replaces the default project for a channel.
// CreatedAt of an existing row is preserved.
func (s *SQLiteStore) SetChannelDefault(ctx context.Context, d *ChannelDefault) error {
	now := time.Now().UTC()
	created := d.CreatedAt
	if created.IsZero() {
		created = now
	}
	updated := d.UpdatedAt
	if updated.IsZero() {
		updated = now
	}

	query := `
		INSERT INTO channel_defaults (channel_id, project_id, project_title, set_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(channel_id) DO UPDATE SET
			project_id = excluded.project_id,
			project_title = excluded.project_title,
			set_by = excluded.set_by,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		d.ChannelID,
		d.ProjectID,
		d.ProjectTitle,
		d.SetBy,
		created.UTC().Format(time.RFC3339),
		updated.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting channel default: %w", err)
	}

	s.logger.Debug("set channel default", "channel", d.ChannelID, "project", d.ProjectID)
	return nil
}

// GetChannelDefault retrieves the default project for a channel.
// Returns ErrNotFound if none is set.
func (s *SQLiteStore) GetChannelDefault(ctx context.Context, channelID string) (*ChannelDefault, error) {
	query := `
		SELECT channel_id, project_id, project_title, set_by, created_at, updated_at
		FROM channel_defaults
		WHERE channel_id = ?
	`

	d, err := scanChannelDefault(s.db.QueryRowContext(ctx, query, channelID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying channel default: %w", err)
	}
	return d, nil
}

// ListChannelDefaults returns all channel defaults ordered by channel.
func (s *SQLiteStore) ListChannelDefaults(ctx context.Context) ([]*ChannelDefault, error) {
	query := `
		SELECT channel_id, project_id, project_title, set_by, created_at, updated_at
		FROM channel_defaults
		ORDER BY channel_id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying channel defaults: %w", err)
	}
	defer rows.Close()

	var out []*ChannelDefault
	for rows.Next() {
		d, err := scanChannelDefault(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning channel default: %w", err)
		}
		out = append(out, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating channel default rows: %w", err)
	}
	return out, nil
}

// DeleteChannelDefault removes a channel's default project.
// Returns ErrNotFound if none was set.
func (s *SQLiteStore) DeleteChannelDefault(ctx context.Context, channelID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM channel_defaults WHERE channel_id = ?`, channelID)
	if err != nil {
		return fmt.Errorf("deleting channel default: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("deleted channel default", "channel", channelID)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChannelDefault(row rowScanner) (*ChannelDefault, error) {
	var d ChannelDefault
	var createdAtStr, updatedAtStr string

	if err := row.Scan(&d.ChannelID, &d.ProjectID, &d.ProjectTitle, &d.SetBy, &createdAtStr, &updatedAtStr); err != nil {
		return nil, err
	}

	var err error
	d.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	d.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &d, nil
}

// Ensure SQLiteStore implements ChannelDefaults interface
var _ ChannelDefaults = (*SQLiteStore)(nil)
