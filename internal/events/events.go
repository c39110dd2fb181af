// Package events defines the messages that move a registration through the
// pipeline. Each event is a flat, self-contained JSON record; decoding is
// strict so a malformed payload is recognized as such instead of being
// retried like a transient failure.
package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrBadPayload marks a message body that can never decode into the expected
// event shape. Callers use errors.Is to tell it apart from infrastructure
// errors, because retrying it is pointless.
var ErrBadPayload = errors.New("malformed event payload")

// RegistrationNew is published by the registration service once a pending
// registration row is durable.
type RegistrationNew struct {
	RegistrationID int64  `json:"registration_id"`
	UserID         int64  `json:"user_id"`
	UserEmail      string `json:"user_email"`
	CourseID       int64  `json:"course_id"`
}

// RegistrationPaid is published by the payment service after the payment
// record is durable.
type RegistrationPaid struct {
	RegistrationID int64   `json:"registration_id"`
	UserID         int64   `json:"user_id"`
	UserEmail      string  `json:"user_email"`
	CourseID       int64   `json:"course_id"`
	Amount         float64 `json:"amount"`
}

// RegistrationCompleted is published by the enrollment service; the
// notification service is its only consumer.
type RegistrationCompleted struct {
	RegistrationID int64  `json:"registration_id"`
	UserID         int64  `json:"user_id"`
	UserEmail      string `json:"user_email"`
	CourseID       int64  `json:"course_id"`
}

func (e RegistrationNew) Encode() ([]byte, error)       { return json.Marshal(e) }
func (e RegistrationPaid) Encode() ([]byte, error)      { return json.Marshal(e) }
func (e RegistrationCompleted) Encode() ([]byte, error) { return json.Marshal(e) }

func DecodeRegistrationNew(body []byte) (RegistrationNew, error) {
	var e RegistrationNew
	if err := decodeStrict(body, &e); err != nil {
		return RegistrationNew{}, err
	}
	if err := checkIdentity(e.RegistrationID, e.UserID, e.UserEmail, e.CourseID); err != nil {
		return RegistrationNew{}, err
	}
	return e, nil
}

func DecodeRegistrationPaid(body []byte) (RegistrationPaid, error) {
	var e RegistrationPaid
	if err := decodeStrict(body, &e); err != nil {
		return RegistrationPaid{}, err
	}
	if err := checkIdentity(e.RegistrationID, e.UserID, e.UserEmail, e.CourseID); err != nil {
		return RegistrationPaid{}, err
	}
	if e.Amount <= 0 {
		return RegistrationPaid{}, fmt.Errorf("%w: amount must be positive", ErrBadPayload)
	}
	return e, nil
}

func DecodeRegistrationCompleted(body []byte) (RegistrationCompleted, error) {
	var e RegistrationCompleted
	if err := decodeStrict(body, &e); err != nil {
		return RegistrationCompleted{}, err
	}
	if err := checkIdentity(e.RegistrationID, e.UserID, e.UserEmail, e.CourseID); err != nil {
		return RegistrationCompleted{}, err
	}
	return e, nil
}

func decodeStrict(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after event", ErrBadPayload)
	}
	return nil
}

func checkIdentity(registrationID, userID int64, userEmail string, courseID int64) error {
	switch {
	case registrationID <= 0:
		return fmt.Errorf("%w: registration_id must be positive", ErrBadPayload)
	case userID <= 0:
		return fmt.Errorf("%w: user_id must be positive", ErrBadPayload)
	case userEmail == "":
		return fmt.Errorf("%w: user_email must be provided", ErrBadPayload)
	case courseID <= 0:
		return fmt.Errorf("%w: course_id must be positive", ErrBadPayload)
	}
	return nil
}
