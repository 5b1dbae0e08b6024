package kvstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/edupanel/attendance-core/pkg/config"
	"github.com/edupanel/attendance-core/pkg/database"
)

// SQL persists documents in a single PostgreSQL table:
//
//	CREATE TABLE kv_documents (
//	    key        TEXT PRIMARY KEY,
//	    value      JSONB NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL
//	);
type SQL struct {
	db *sqlx.DB
}

// NewSQL opens a pooled PostgreSQL connection and verifies it.
func NewSQL(cfg config.DatabaseConfig) (*SQL, error) {
	db, err := database.NewPostgres(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &SQL{db: db}, nil
}

// NewSQLFromDB wraps an existing connection, used by tests.
func NewSQLFromDB(db *sqlx.DB) *SQL {
	return &SQL{db: db}
}

// Get implements Store.
func (s *SQL) Get(ctx context.Context, key string, dest interface{}) error {
	const query = `SELECT value FROM kv_documents WHERE key = $1`
	var raw []byte
	if err := s.db.GetContext(ctx, &raw, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrKeyNotFound
		}
		return fmt.Errorf("select %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return nil
}

// Set implements Store.
func (s *SQL) Set(ctx context.Context, key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	const query = `INSERT INTO kv_documents (key, value, updated_at) VALUES ($1, $2, $3)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
	if _, err := s.db.ExecContext(ctx, query, key, payload, time.Now().UTC()); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

// Delete implements Store.
func (s *SQL) Delete(ctx context.Context, key string) error {
	const query = `DELETE FROM kv_documents WHERE key = $1`
	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Keys implements Store.
func (s *SQL) Keys(ctx context.Context, prefix string) ([]string, error) {
	const query = `SELECT key FROM kv_documents WHERE key LIKE $1 ORDER BY key ASC`
	var keys []string
	if err := s.db.SelectContext(ctx, &keys, query, prefix+"%"); err != nil {
		return nil, fmt.Errorf("list keys %s: %w", prefix, err)
	}
	return keys, nil
}

// Close releases the connection pool.
func (s *SQL) Close() error {
	return s.db.Close()
}
