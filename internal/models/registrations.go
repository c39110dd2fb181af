package models

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/rmaganhoto/coursereg/internal/validator"
)

// Registration is the intake record. The id is assigned by the database and
// is the correlation key every downstream service keys on.
type Registration struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	UserEmail string    `json:"user_email"`
	CourseID  int64     `json:"course_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func ValidateRegistration(v *validator.Validator, reg *Registration) {
	v.Check(reg.UserID > 0, "user_id", "must be a positive integer")
	v.Check(reg.UserEmail != "", "user_email", "must be provided")
	v.Check(validator.Matches(reg.UserEmail, validator.EmailRX), "user_email", "must be a valid email address")
	v.Check(reg.CourseID > 0, "course_id", "must be a positive integer")
}

// RegistrationModel is a wrapper for the database connection.
type RegistrationModel struct {
	DB *sql.DB
}

// EnsureSchema creates the registrations table if it does not exist. Called
// once at service startup.
func (r RegistrationModel) EnsureSchema(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS registrations (
            id bigserial PRIMARY KEY,
            user_id bigint NOT NULL,
            user_email text NOT NULL,
            course_id bigint NOT NULL,
            status text NOT NULL DEFAULT 'pending',
            created_at timestamptz NOT NULL DEFAULT NOW()
        )`)
	return err
}

// Insert persists a pending registration and fills in the assigned id and
// timestamp.
func (r RegistrationModel) Insert(ctx context.Context, reg *Registration) error {
	return r.DB.QueryRowContext(
		ctx,
		`INSERT INTO registrations (user_id, user_email, course_id, status)
         VALUES ($1, $2, $3, $4)
         RETURNING id, created_at`,
		reg.UserID,
		reg.UserEmail,
		reg.CourseID,
		reg.Status,
	).Scan(&reg.ID, &reg.CreatedAt)
}

// InsertWithIdempotencyKey persists the registration and its idempotency key
// in one transaction. Two concurrent requests carrying the same key both
// reach the insert; the key's primary-key constraint makes the loser roll
// back its registration row and get ErrDuplicateKey instead of creating a
// second registration.
func (r RegistrationModel) InsertWithIdempotencyKey(ctx context.Context, reg *Registration, key string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	err = tx.QueryRowContext(
		ctx,
		`INSERT INTO registrations (user_id, user_email, course_id, status)
         VALUES ($1, $2, $3, $4)
         RETURNING id, created_at`,
		reg.UserID,
		reg.UserEmail,
		reg.CourseID,
		reg.Status,
	).Scan(&reg.ID, &reg.CreatedAt)
	if err != nil {
		tx.Rollback()
		return err
	}

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO idempotency_keys (key, registration_id, created_at) VALUES ($1, $2, NOW())`,
		key,
		reg.ID,
	)
	if err != nil {
		tx.Rollback()
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateKey
		}
		return err
	}

	return tx.Commit()
}

func (r RegistrationModel) Get(ctx context.Context, id int64) (*Registration, error) {
	reg := &Registration{}
	row := r.DB.QueryRowContext(
		ctx,
		`SELECT id, user_id, user_email, course_id, status, created_at FROM registrations WHERE id = $1`,
		id,
	)
	err := row.Scan(&reg.ID, &reg.UserID, &reg.UserEmail, &reg.CourseID, &reg.Status, &reg.CreatedAt)
	if err != nil {
		return nil, err
	}
	return reg, nil
}
