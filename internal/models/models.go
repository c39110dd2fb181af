package models

import "database/sql"

// Models bundles the stores. Each service connects to its own database and
// only touches its own store; the bundle just keeps construction uniform.
type Models struct {
	Registration   RegistrationModel
	IdempotencyKey IdempotencyKeyModel
	Payment        PaymentModel
	Enrollment     EnrollmentModel
}

func NewModels(db *sql.DB) Models {
	return Models{
		Registration:   RegistrationModel{DB: db},
		IdempotencyKey: IdempotencyKeyModel{DB: db},
		Payment:        PaymentModel{DB: db},
		Enrollment:     EnrollmentModel{DB: db},
	}
}
