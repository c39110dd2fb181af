package models

import (
	"context"
	"database/sql"
	"time"
)

// Enrollment records that a paid registration was enrolled in its course.
type Enrollment struct {
	RegistrationID int64     `json:"registration_id"`
	UserID         int64     `json:"user_id"`
	CourseID       int64     `json:"course_id"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// EnrollmentModel is a wrapper for the database connection.
type EnrollmentModel struct {
	DB *sql.DB
}

// EnsureSchema creates the enrollments table if it does not exist.
func (e EnrollmentModel) EnsureSchema(ctx context.Context) error {
	_, err := e.DB.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS enrollments (
            registration_id bigint PRIMARY KEY,
            user_id bigint NOT NULL,
            course_id bigint NOT NULL,
            active boolean NOT NULL DEFAULT false,
            created_at timestamptz NOT NULL DEFAULT NOW(),
            updated_at timestamptz NOT NULL DEFAULT NOW()
        )`)
	return err
}

// Upsert persists an enrollment keyed by registration id; same idempotency
// contract as PaymentModel.Upsert.
func (e EnrollmentModel) Upsert(ctx context.Context, enrollment *Enrollment) error {
	_, err := e.DB.ExecContext(
		ctx,
		`INSERT INTO enrollments (registration_id, user_id, course_id, active, created_at, updated_at)
         VALUES ($1, $2, $3, $4, NOW(), NOW())
         ON CONFLICT (registration_id)
         DO UPDATE SET user_id = EXCLUDED.user_id, course_id = EXCLUDED.course_id, active = EXCLUDED.active, updated_at = NOW()`,
		enrollment.RegistrationID,
		enrollment.UserID,
		enrollment.CourseID,
		enrollment.Active,
	)
	return err
}

// Get gets an enrollment from the database.
func (e EnrollmentModel) Get(ctx context.Context, registrationID int64) (*Enrollment, error) {
	enrollment := &Enrollment{}
	row := e.DB.QueryRowContext(
		ctx,
		`SELECT registration_id, user_id, course_id, active, created_at, updated_at FROM enrollments WHERE registration_id = $1`,
		registrationID,
	)
	err := row.Scan(
		&enrollment.RegistrationID,
		&enrollment.UserID,
		&enrollment.CourseID,
		&enrollment.Active,
		&enrollment.CreatedAt,
		&enrollment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return enrollment, nil
}
