package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartupStatusGate(t *testing.T) {
	status := NewStartupStatus("database", "migrations")

	serve := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		status.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
		return rec
	}

	status.SetCurrentStep("Connecting to database")
	status.CompleteStep("database")

	rec := serve()
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))

	var body struct {
		Status   string        `json:"status"`
		Current  string        `json:"current"`
		Progress int           `json:"progress"`
		Steps    []StartupStep `json:"steps"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "STARTING", body.Status)
	assert.Equal(t, "Connecting to database", body.Current)
	assert.Equal(t, 50, body.Progress)
	assert.Equal(t, []StartupStep{{Name: "database", Completed: true}, {Name: "migrations"}}, body.Steps)
	assert.False(t, status.IsReady())

	status.MarkReady(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	assert.True(t, status.IsReady())
	assert.Equal(t, http.StatusTeapot, serve().Code)
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		ping       error
		wantStatus int
		wantBody   map[string]string
	}{
		{"connected", nil, http.StatusOK, map[string]string{"status": "OK", "db": "connected"}},
		{"down", errors.New("connection refused"), http.StatusServiceUnavailable,
			map[string]string{"status": "DEGRADED", "db": "disconnected", "error": "connection refused"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Health(pingerFunc(func(ctx context.Context) error { return tt.ping }))
			rec := httptest.NewRecorder()
			h(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantBody, body)
		})
	}
}
