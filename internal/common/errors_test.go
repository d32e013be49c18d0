package common

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"weak password", WeakPassword("Password cannot be empty"), http.StatusBadRequest},
		{"validation", Validation("email: must be a valid email address."), http.StatusBadRequest},
		{"duplicate username", ErrDuplicateUsername, http.StatusBadRequest},
		{"wrapped duplicate", fmt.Errorf("create user: %w", ErrDuplicateEmail), http.StatusBadRequest},
		{"credentials", ErrInvalidCredentials, http.StatusUnauthorized},
		{"upstream", Upstream(errors.New("dial tcp: refused")), http.StatusUnauthorized},
		{"not found", NotFoundf("User not found with ID: %s", "42"), http.StatusNotFound},
		{"pg unique", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), http.StatusBadRequest},
		{"internal", Internal(errors.New("disk full"), "failed to create user"), http.StatusInternalServerError},
		{"untagged", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatusFromError(tc.err))
		})
	}
}

func TestErrorChains(t *testing.T) {
	err := WeakPassword("Password must contain at least one digit")
	assert.ErrorIs(t, err, ErrWeakPassword)
	assert.Equal(t, "Password must contain at least one digit", err.Error())

	nf := NotFoundf("User not found with ID: %s", "7")
	assert.ErrorIs(t, nf, ErrNotFound)

	c := Conflictf(ErrDuplicateUsername, "Username already exists: %s", "bob")
	assert.ErrorIs(t, c, ErrDuplicateUsername)
	assert.Equal(t, KindConflict, KindOf(c))
}

func TestPublicMessage_HidesInternalDetail(t *testing.T) {
	err := Internal(errors.New("pq: connection reset"), "failed to find user")
	assert.Equal(t, "internal server error", PublicMessage(err))
	assert.Contains(t, err.Error(), "connection reset")

	assert.Equal(t, "Invalid username or password", PublicMessage(ErrInvalidCredentials))
	assert.Equal(t, "internal server error", PublicMessage(errors.New("raw")))
}

func TestRespondWithDomainError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondWithDomainError(rec, ErrInvalidCredentials)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"Invalid username or password"}`, rec.Body.String())
}
