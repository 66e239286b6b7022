package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"kidquest/internal/security"
	"kidquest/internal/service"
	"kidquest/internal/validation"
)

func TestRespondWithErrorWritesStatusAndBody(t *testing.T) {
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/x", nil)

	respondWithError(recorder, req, zap.NewNop(), 418, "Teapot", "", nil)

	assert.Equal(t, 418, recorder.Code)
	assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"Teapot"}`, recorder.Body.String())
}

func TestRespondWithErrorLogsMessage(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/x", nil)

	respondWithError(recorder, req, zap.New(core), 500, "Internal server error", "", errors.New("boom"))

	entries := logs.FilterMessage("Internal server error").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "boom", entries[0].ContextMap()["error"])
	assert.Equal(t, "/api/x", entries[0].ContextMap()["path"])
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", service.ErrForbidden), http.StatusForbidden},
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{security.ErrInvalidToken, http.StatusUnauthorized},
		{service.ErrDuplicateRequest, http.StatusBadRequest},
		{service.ErrRequestNotPending, http.StatusBadRequest},
		{service.ErrInappropriateContent, http.StatusBadRequest},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestRespondWithServiceError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/x", nil)

	recorder := httptest.NewRecorder()
	respondWithServiceError(recorder, req, zap.NewNop(), validation.ValidationError{Field: "email", Message: "invalid email format"}, "nope")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.JSONEq(t, `{"error":"invalid email format"}`, recorder.Body.String())

	recorder = httptest.NewRecorder()
	respondWithServiceError(recorder, req, zap.NewNop(), errors.New("connection reset"), "Failed to fetch kids")
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.JSONEq(t, `{"error":"Failed to fetch kids"}`, recorder.Body.String())
}
