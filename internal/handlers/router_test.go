package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"kidquest/internal/config"
	"kidquest/internal/models"
	"kidquest/internal/repository"
	"kidquest/internal/security"
	"kidquest/internal/service"
	"kidquest/internal/testutil"
)

type api struct {
	t      *testing.T
	router http.Handler
}

// newAPI wires the full router over a fresh SQLite database
func newAPI(t *testing.T, authRate int) *api {
	t.Helper()
	db := testutil.NewDB(t)
	logger := zaptest.NewLogger(t)

	users := repository.NewUserRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	email, err := service.NewEmailService(t.Context(), service.EmailConfig{}, logger)
	require.NoError(t, err)

	authService := service.NewAuthService(users, security.NewTokenIssuer("test-secret", time.Hour), logger)
	linkService := service.NewLinkService(db, users, repository.NewLinkRequestRepository(db), email, config.RerequestBlock, logger)
	progressService := service.NewProgressService(db, progressRepo, repository.NewBadgeRepository(db), users, activityRepo, config.BadgePolicyExact, logger)
	activityService := service.NewActivityService(activityRepo)
	communityService := service.NewCommunityService(db, repository.NewCommunityRepository(db), users, repository.NewBadWordRepository(db), logger)

	limiter := security.NewRateLimiter(authRate, time.Minute)
	t.Cleanup(limiter.Close)

	router := NewRouter(RouterDeps{
		DB:             db,
		Middleware:     NewMiddleware(authService, logger),
		Auth:           NewAuthHandler(authService, nil, "http://localhost:5000", logger),
		Links:          NewLinkHandler(linkService, progressService, logger),
		Progress:       NewProgressHandler(progressService, activityService, logger),
		Community:      NewCommunityHandler(communityService, logger),
		AuthLimiter:    limiter,
		AllowedOrigins: []string{"http://localhost:5173"},
		Logger:         logger,
	})
	return &api{t: t, router: router}
}

func (a *api) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

type account struct {
	token string
	user  models.User
	email string
}

func (a *api) register(name, role string) account {
	a.t.Helper()
	email := fmt.Sprintf("%s@example.com", name)
	rec := a.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "password123", "role": role,
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())

	var out struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	decodeBody(a.t, rec, &out)
	return account{token: out.Token, user: out.User, email: email}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestAuthEndpoints(t *testing.T) {
	a := newAPI(t, 100)
	parent := a.register("Pat", models.RoleParent)
	assert.NotEmpty(t, parent.token)
	assert.NotEmpty(t, parent.user.Avatar)

	rec := a.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": parent.email, "password": "password123"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": parent.email, "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(http.MethodGet, "/api/auth/me", parent.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me struct {
		User models.User `json:"user"`
	}
	decodeBody(t, rec, &me)
	assert.Equal(t, parent.user.ID, me.User.ID)
	assert.Empty(t, me.User.PasswordHash)

	rec = a.do(http.MethodPost, "/api/auth/register", "", map[string]string{"name": "X", "email": "bad", "password": "short", "role": "kid"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodGet, "/api/auth/google/start", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "provider without credentials is disabled")
}

func TestAuthRequired(t *testing.T) {
	a := newAPI(t, 100)

	tests := []struct {
		name    string
		token   string
		wantErr string
	}{
		{"no token", "", "No token provided"},
		{"garbage token", "not-a-jwt", "Invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.do(http.MethodGet, "/api/progress", tt.token, nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			var body errorResponse
			decodeBody(t, rec, &body)
			assert.Equal(t, tt.wantErr, body.Error)
		})
	}
}

func TestRoleGates(t *testing.T) {
	a := newAPI(t, 100)
	kid := a.register("Kit", models.RoleKid)
	teacher := a.register("Tess", models.RoleTeacher)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"kid cannot list my-kids", http.MethodGet, "/api/parent-kid/my-kids", kid.token, http.StatusForbidden},
		{"teacher cannot list my-kids", http.MethodGet, "/api/parent-kid/my-kids", teacher.token, http.StatusForbidden},
		{"kid cannot see children", http.MethodGet, "/api/progress/children", kid.token, http.StatusForbidden},
		{"teacher sees children", http.MethodGet, "/api/progress/children", teacher.token, http.StatusOK},
		{"kid cannot moderate", http.MethodGet, "/api/community/posts/pending", kid.token, http.StatusForbidden},
		{"teacher cannot post", http.MethodPost, "/api/community/posts", teacher.token, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.do(tt.method, tt.path, tt.token, map[string]string{})
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestLinkAndProgressFlow(t *testing.T) {
	a := newAPI(t, 100)
	parent := a.register("Pam", models.RoleParent)
	kid := a.register("Kai", models.RoleKid)

	rec := a.do(http.MethodPost, "/api/parent-kid/request", kid.token, map[string]string{
		"targetEmail": parent.email, "requestedBy": models.RoleKid,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(http.MethodPost, "/api/parent-kid/request", kid.token, map[string]string{
		"targetEmail": parent.email, "requestedBy": models.RoleKid,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "duplicate pending request")

	rec = a.do(http.MethodGet, "/api/parent-kid/requests", parent.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var pending struct {
		Requests []models.PendingRequest `json:"requests"`
	}
	decodeBody(t, rec, &pending)
	require.Len(t, pending.Requests, 1)
	requestID := pending.Requests[0].ID

	rec = a.do(http.MethodPost, "/api/parent-kid/respond/abc", parent.token, map[string]string{"action": "approve"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPost, fmt.Sprintf("/api/parent-kid/respond/%d", requestID), kid.token, map[string]string{"action": "approve"})
	assert.Equal(t, http.StatusForbidden, rec.Code, "requester cannot answer their own request")

	rec = a.do(http.MethodPost, fmt.Sprintf("/api/parent-kid/respond/%d", requestID), parent.token, map[string]string{"action": "approve"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var msg messageResponse
	decodeBody(t, rec, &msg)
	assert.Equal(t, "Link request approved successfully", msg.Message)

	rec = a.do(http.MethodGet, "/api/parent-kid/my-kids", parent.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var kids struct {
		Kids []models.LinkedKid `json:"kids"`
	}
	decodeBody(t, rec, &kids)
	require.Len(t, kids.Kids, 1)
	assert.Equal(t, kid.user.ID, kids.Kids[0].ID)

	rec = a.do(http.MethodPost, "/api/progress/update", kid.token, map[string]interface{}{
		"subject": "math", "topic": "counting", "score": 90, "stars": 3,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(http.MethodPost, "/api/activities/log", kid.token, map[string]interface{}{
		"activityType": "game", "activityName": "Number Hunt", "details": map[string]int{"level": 2},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(http.MethodGet, fmt.Sprintf("/api/parent-kid/kid-progress/%d", kid.user.ID), parent.token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var kp models.KidProgress
	decodeBody(t, rec, &kp)
	require.Len(t, kp.Progress, 1)
	assert.Equal(t, 90, kp.Progress[0].Score)
	assert.Equal(t, 3, kp.Stats.TotalStars)
	assert.Len(t, kp.Activities, 1)

	rec = a.do(http.MethodGet, fmt.Sprintf("/api/progress?userId=%d", kid.user.ID), parent.token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(http.MethodGet, "/api/progress?userId=oops", parent.token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPost, fmt.Sprintf("/api/parent-kid/unlink/%d", kid.user.ID), parent.token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(http.MethodGet, fmt.Sprintf("/api/parent-kid/kid-progress/%d", kid.user.ID), parent.token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, "unlinked kid is no longer visible")
}

func TestCommunityFlow(t *testing.T) {
	a := newAPI(t, 100)
	kid := a.register("Kim", models.RoleKid)
	teacher := a.register("Ted", models.RoleTeacher)

	rec := a.do(http.MethodPost, "/api/community/posts", kid.token, map[string]string{
		"postType": "drawing", "title": "My rocket", "content": "It flies",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var created struct {
		Message string               `json:"message"`
		Post    models.CommunityPost `json:"post"`
	}
	decodeBody(t, rec, &created)
	assert.False(t, created.Post.Approved)
	postPath := fmt.Sprintf("/api/community/posts/%d", created.Post.ID)

	var listed struct {
		Posts []models.CommunityPost `json:"posts"`
	}
	rec = a.do(http.MethodGet, "/api/community/posts", kid.token, nil)
	decodeBody(t, rec, &listed)
	assert.Empty(t, listed.Posts, "unapproved posts stay hidden")

	rec = a.do(http.MethodPatch, postPath+"/approve", teacher.token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(http.MethodGet, "/api/community/posts", kid.token, nil)
	decodeBody(t, rec, &listed)
	require.Len(t, listed.Posts, 1)

	rec = a.do(http.MethodPost, postPath+"/react", teacher.token, map[string]string{"emoji": "⭐"})
	decodeBody(t, rec, &created)
	assert.Equal(t, "Reaction added", created.Message)

	rec = a.do(http.MethodGet, postPath+"/reactions", kid.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var reactions struct {
		Reactions []models.ReactionCount `json:"reactions"`
	}
	decodeBody(t, rec, &reactions)
	assert.Equal(t, []models.ReactionCount{{Emoji: "⭐", Count: 1}}, reactions.Reactions)

	rec = a.do(http.MethodPost, postPath+"/react", teacher.token, map[string]string{"emoji": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodDelete, postPath, kid.token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRateLimit(t *testing.T) {
	a := newAPI(t, 2)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := a.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "nobody@example.com", "password": "password123"})
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusTooManyRequests}, codes)
}

func TestHealthAndCORS(t *testing.T) {
	a := newAPI(t, 100)

	rec := a.do(http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	decodeBody(t, rec, &body)
	assert.Equal(t, "OK", body["status"])
	assert.Equal(t, "connected", body["db"])

	req := httptest.NewRequest(http.MethodOptions, "/api/progress", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	preflight := httptest.NewRecorder()
	a.router.ServeHTTP(preflight, req)
	assert.Equal(t, "http://localhost:5173", preflight.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", preflight.Header().Get("Access-Control-Allow-Credentials"))
}
