package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

type postgresTokenStore struct {
	db *PostgresDB
}

func NewPostgresTokenStore(db *PostgresDB) TokenStore {
	return &postgresTokenStore{db: db}
}

// EnsureSchema creates the client_state table if it does not exist.
func EnsureSchema(ctx context.Context, db *PostgresDB) error {
	query := `
		CREATE TABLE IF NOT EXISTS client_state (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := db.Pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create client_state table: %w", err)
	}
	return nil
}

func (s *postgresTokenStore) Load(ctx context.Context) (string, error) {
	query := `SELECT value FROM client_state WHERE key = $1`

	var token string
	err := s.db.Pool.QueryRow(ctx, query, TokenKey).Scan(&token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNoToken
		}
		return "", fmt.Errorf("failed to load token: %w", err)
	}
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

func (s *postgresTokenStore) Save(ctx context.Context, token string) error {
	query := `
		INSERT INTO client_state (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`
	if _, err := s.db.Pool.Exec(ctx, query, TokenKey, token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

func (s *postgresTokenStore) Clear(ctx context.Context) error {
	query := `DELETE FROM client_state WHERE key = $1`
	if _, err := s.db.Pool.Exec(ctx, query, TokenKey); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}
	return nil
}
