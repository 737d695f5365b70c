package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-BookingEngine/internal/domain"
)

func TestStatusFromError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrBookingNotFound, http.StatusNotFound},
		{&domain.ConflictError{}, http.StatusConflict},
		{fmt.Errorf("wrap: %w", domain.ErrInvalidTransition), http.StatusConflict},
		{domain.ErrStatusChanged, http.StatusConflict},
		{domain.ErrOutOfHours, http.StatusBadRequest},
		{domain.ErrPastDate, http.StatusBadRequest},
		{domain.ErrInvalidInput, http.StatusBadRequest},
		{domain.ErrPolicyViolation, http.StatusUnprocessableEntity},
		{domain.ErrStorage, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFromError(tt.err))
		})
	}
}

func TestOutcomeLabel(t *testing.T) {
	assert.Equal(t, "ok", OutcomeLabel(nil))
	assert.Equal(t, "conflict", OutcomeLabel(&domain.ConflictError{}))
	assert.Equal(t, "policy_violation", OutcomeLabel(domain.ErrPolicyViolation))
	assert.Equal(t, "error", OutcomeLabel(errors.New("boom")))
}

func TestRespondKindError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondKindError(rec, fmt.Errorf("x: %w", domain.ErrPolicyViolation), "нельзя")

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.JSONEq(t, `{"error":"нельзя","kind":"booking policy violation"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	RespondKindError(rec, errors.New("db down"), "не важно")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db down")
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Status string `json:"status"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"status":"confirmed"}`))
	require.NoError(t, DecodeJSON(req, &v))
	assert.Equal(t, "confirmed", v.Status)

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	assert.NoError(t, DecodeJSON(req, &v))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"unknown":1}`))
	assert.Error(t, DecodeJSON(req, &v))
}

func TestParsePositiveInt64(t *testing.T) {
	id, err := ParsePositiveInt64("15")
	require.NoError(t, err)
	assert.Equal(t, int64(15), id)

	_, err = ParsePositiveInt64("0")
	assert.Error(t, err)
	_, err = ParsePositiveInt64("x")
	assert.Error(t, err)
}
