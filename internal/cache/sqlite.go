package cache

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/cellar-cli/internal/model"
)

// SQLite is a durable cache in a local SQLite file.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens the database at dsn in WAL mode and creates the table.
func NewSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "cache: sqlite open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "cache: sqlite %s", pragma)
		}
	}
	s := &SQLite{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS drinking_windows (
	cache_key  TEXT PRIMARY KEY,
	result     TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);`

func (s *SQLite) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteSchema)
	return eris.Wrap(err, "cache: sqlite migrate")
}

// Get implements Cache.
func (s *SQLite) Get(ctx context.Context, key string) (model.CascadeResult, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT result FROM drinking_windows WHERE cache_key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return model.CascadeResult{}, false, nil
	}
	if err != nil {
		return model.CascadeResult{}, false, eris.Wrap(err, "cache: sqlite get")
	}
	r, err := decode([]byte(raw))
	if err != nil {
		return model.CascadeResult{}, false, err
	}
	return r, true, nil
}

// Put implements Cache.
func (s *SQLite) Put(ctx context.Context, key string, r model.CascadeResult) error {
	b, err := encode(r)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO drinking_windows (cache_key, result, updated_at) VALUES (?, ?, datetime('now'))
		ON CONFLICT (cache_key) DO UPDATE SET result = excluded.result, updated_at = excluded.updated_at`,
		key, string(b))
	return eris.Wrap(err, "cache: sqlite put")
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
