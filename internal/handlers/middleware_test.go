package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"kidquest/internal/models"
)

func TestLoggingCapturesDownstreamIdentity(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r = r.WithContext(WithIdentity(r.Context(), models.Identity{UserID: 7, Role: models.RoleKid}))
		w.WriteHeader(http.StatusCreated)
	})
	h := Logging(zap.New(core))(inner)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/progress/update", nil))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, int64(http.StatusCreated), fields["status"])
	assert.Equal(t, "/api/progress/update", fields["path"])
	assert.Equal(t, int64(7), fields["user_id"])
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	gate := RequireRole(models.RoleParent, models.RoleTeacher)(ok)

	tests := []struct {
		name     string
		identity *models.Identity
		want     int
	}{
		{"no identity", nil, http.StatusUnauthorized},
		{"kid", &models.Identity{UserID: 1, Role: models.RoleKid}, http.StatusForbidden},
		{"parent", &models.Identity{UserID: 2, Role: models.RoleParent}, http.StatusNoContent},
		{"teacher", &models.Identity{UserID: 3, Role: models.RoleTeacher}, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/progress/children", nil)
			if tt.identity != nil {
				req = req.WithContext(WithIdentity(req.Context(), *tt.identity))
			}
			rec := httptest.NewRecorder()
			gate.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
