package models

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrDuplicateKey reports that another request already claimed the
// idempotency key; the caller should answer with that request's
// registration id.
var ErrDuplicateKey = errors.New("idempotency key already exists")

// IdempotencyKey maps a client-supplied request key to the registration it
// created, so a retried intake request returns the original id.
type IdempotencyKey struct {
	Key            string    `json:"key"`
	RegistrationID int64     `json:"registration_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// IdempotencyKeyModel is a wrapper for the database connection.
type IdempotencyKeyModel struct {
	DB *sql.DB
}

// EnsureSchema creates the idempotency_keys table if it does not exist.
func (i IdempotencyKeyModel) EnsureSchema(ctx context.Context) error {
	_, err := i.DB.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS idempotency_keys (
            key text PRIMARY KEY,
            registration_id bigint NOT NULL,
            created_at timestamptz NOT NULL DEFAULT NOW()
        )`)
	return err
}

// Get gets an idempotency key from the database.
func (i IdempotencyKeyModel) Get(ctx context.Context, key string) (*IdempotencyKey, error) {
	idempotencyKey := &IdempotencyKey{}
	row := i.DB.QueryRowContext(ctx, `SELECT key, registration_id, created_at FROM idempotency_keys WHERE key = $1`, key)
	err := row.Scan(&idempotencyKey.Key, &idempotencyKey.RegistrationID, &idempotencyKey.CreatedAt)
	if err != nil {
		return nil, err
	}
	return idempotencyKey, nil
}
