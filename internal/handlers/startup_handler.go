package handlers

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// StartupStatus tracks initialization progress. It serves 503 with the
// progress until MarkReady hands it the application router.
type StartupStatus struct {
	mu       sync.RWMutex
	current  string
	progress int
	steps    []StartupStep

	app atomic.Pointer[http.Handler]
}

type StartupStep struct {
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
}

// NewStartupStatus creates a tracker for the named steps
func NewStartupStatus(stepNames ...string) *StartupStatus {
	steps := make([]StartupStep, len(stepNames))
	for i, name := range stepNames {
		steps[i] = StartupStep{Name: name}
	}
	return &StartupStatus{current: "Initializing...", steps: steps}
}

// SetCurrentStep updates the current initialization step
func (s *StartupStatus) SetCurrentStep(step string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = step
}

// CompleteStep marks a step as completed and updates progress
func (s *StartupStatus) CompleteStep(stepName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.steps {
		if s.steps[i].Name == stepName {
			s.steps[i].Completed = true
			break
		}
	}

	completed := 0
	for _, step := range s.steps {
		if step.Completed {
			completed++
		}
	}
	if len(s.steps) > 0 {
		s.progress = (completed * 100) / len(s.steps)
	}
}

// MarkReady starts routing requests to app
func (s *StartupStatus) MarkReady(app http.Handler) {
	s.mu.Lock()
	s.current = "Server ready"
	s.progress = 100
	s.mu.Unlock()
	s.app.Store(&app)
}

// IsReady returns whether the server is fully initialized
func (s *StartupStatus) IsReady() bool {
	return s.app.Load() != nil
}

func (s *StartupStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if app := s.app.Load(); app != nil {
		(*app).ServeHTTP(w, r)
		return
	}

	s.mu.RLock()
	body := map[string]interface{}{
		"status":   "STARTING",
		"current":  s.current,
		"progress": s.progress,
		"steps":    append([]StartupStep(nil), s.steps...),
	}
	s.mu.RUnlock()

	w.Header().Set("Retry-After", "2")
	respondJSON(w, http.StatusServiceUnavailable, body)
}

// Pinger is satisfied by *sql.DB
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Health reports datastore connectivity
func Health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "DEGRADED",
				"db":     "disconnected",
				"error":  err.Error(),
			})
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "OK", "db": "connected"})
	}
}
