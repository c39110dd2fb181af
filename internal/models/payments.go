package models

import (
	"context"
	"database/sql"
	"time"
)

// Payment records that a registration was paid. One row per registration.
type Payment struct {
	RegistrationID int64     `json:"registration_id"`
	Amount         float64   `json:"amount"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// PaymentModel is a wrapper for the database connection.
type PaymentModel struct {
	DB *sql.DB
}

// EnsureSchema creates the payments table if it does not exist.
func (p PaymentModel) EnsureSchema(ctx context.Context) error {
	_, err := p.DB.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS payments (
            registration_id bigint PRIMARY KEY,
            amount numeric(10,2) NOT NULL,
            status text NOT NULL,
            created_at timestamptz NOT NULL DEFAULT NOW(),
            updated_at timestamptz NOT NULL DEFAULT NOW()
        )`)
	return err
}

// Upsert persists a payment keyed by registration id. Redelivered messages
// re-run the handler, so a second write for the same registration must land
// on the same row instead of creating a duplicate charge.
func (p PaymentModel) Upsert(ctx context.Context, payment *Payment) error {
	_, err := p.DB.ExecContext(
		ctx,
		`INSERT INTO payments (registration_id, amount, status, created_at, updated_at)
         VALUES ($1, $2, $3, NOW(), NOW())
         ON CONFLICT (registration_id)
         DO UPDATE SET amount = EXCLUDED.amount, status = EXCLUDED.status, updated_at = NOW()`,
		payment.RegistrationID,
		payment.Amount,
		payment.Status,
	)
	return err
}

// Get gets a payment from the database.
func (p PaymentModel) Get(ctx context.Context, registrationID int64) (*Payment, error) {
	payment := &Payment{}
	row := p.DB.QueryRowContext(
		ctx,
		`SELECT registration_id, amount, status, created_at, updated_at FROM payments WHERE registration_id = $1`,
		registrationID,
	)
	err := row.Scan(&payment.RegistrationID, &payment.Amount, &payment.Status, &payment.CreatedAt, &payment.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return payment, nil
}
