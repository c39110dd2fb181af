package main

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/rmaganhoto/coursereg/internal/broker"
	"github.com/rmaganhoto/coursereg/internal/events"
	"github.com/rmaganhoto/coursereg/internal/models"
	"github.com/rmaganhoto/coursereg/internal/validator"
)

func (app *application) createRegistrationHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		UserID    int64  `json:"user_id"`
		UserEmail string `json:"user_email"`
		CourseID  int64  `json:"course_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	// A retried request with the same key answers with the original id
	// instead of creating a second registration.
	idempotencyKey := r.Header.Get("X-Idempotency-Key")
	if idempotencyKey != "" {
		key, err := app.models.IdempotencyKey.Get(r.Context(), idempotencyKey)
		if err == nil {
			writeJSON(w, http.StatusOK, envelope{
				"status":          "ok",
				"registration_id": key.RegistrationID,
			}, nil)
			return
		}
		if !errors.Is(err, sql.ErrNoRows) {
			errorResponse(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	reg := &models.Registration{
		UserID:    input.UserID,
		UserEmail: input.UserEmail,
		CourseID:  input.CourseID,
		Status:    "pending",
	}

	v := validator.New()
	models.ValidateRegistration(v, reg)
	if !v.Valid() {
		errorResponse(w, http.StatusUnprocessableEntity, v.Errors)
		return
	}

	if idempotencyKey == "" {
		if err := app.models.Registration.Insert(r.Context(), reg); err != nil {
			errorResponse(w, http.StatusInternalServerError, err.Error())
			return
		}
	} else {
		err := app.models.Registration.InsertWithIdempotencyKey(r.Context(), reg, idempotencyKey)
		if errors.Is(err, models.ErrDuplicateKey) {
			// A concurrent request with the same key won the race; answer
			// with its registration and publish nothing.
			key, err := app.models.IdempotencyKey.Get(r.Context(), idempotencyKey)
			if err != nil {
				errorResponse(w, http.StatusInternalServerError, err.Error())
				return
			}
			writeJSON(w, http.StatusOK, envelope{
				"status":          "ok",
				"registration_id": key.RegistrationID,
			}, nil)
			return
		}
		if err != nil {
			errorResponse(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	event := events.RegistrationNew{
		RegistrationID: reg.ID,
		UserID:         reg.UserID,
		UserEmail:      reg.UserEmail,
		CourseID:       reg.CourseID,
	}
	body, err := event.Encode()
	if err != nil {
		app.logger.Error("Error encoding event", "error", err, "registration_id", reg.ID)
	} else {
		app.publisher.Enqueue(broker.RegistrationNewRoutingKey, body)
	}

	writeJSON(w, http.StatusCreated, envelope{
		"status":          "ok",
		"registration_id": reg.ID,
	}, nil)
}

func (app *application) getRegistrationHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		errorResponse(w, http.StatusBadRequest, "invalid registration ID")
		return
	}

	reg, err := app.models.Registration.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			errorResponse(w, http.StatusNotFound, "registration not found")
			return
		}
		errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, envelope{"registration": reg}, nil)
}
