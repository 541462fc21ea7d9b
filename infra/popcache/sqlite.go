package popcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite persists lookups across restarts.
type SQLite struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewSQLite opens or creates the database at path and ensures schema.
func NewSQLite(path string, ttl time.Duration) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS population_lookups (
        key TEXT PRIMARY KEY,
        population REAL NOT NULL,
        stored_at INTEGER NOT NULL
    );`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLite{db: db, ttl: ttl, now: time.Now}, nil
}

func (s *SQLite) Get(ctx context.Context, key string) (float64, bool, error) {
	var (
		pop    float64
		stored int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT population, stored_at FROM population_lookups WHERE key = ?`, key).Scan(&pop, &stored)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if s.ttl > 0 && s.now().Sub(time.Unix(stored, 0)) > s.ttl {
		return 0, false, nil
	}
	return pop, true, nil
}

func (s *SQLite) Put(ctx context.Context, key string, population float64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO population_lookups (key, population, stored_at) VALUES (?, ?, ?)
         ON CONFLICT(key) DO UPDATE SET population = excluded.population, stored_at = excluded.stored_at`,
		key, population, s.now().Unix())
	return err
}

// Close closes the underlying database.
func (s *SQLite) Close() error { return s.db.Close() }
