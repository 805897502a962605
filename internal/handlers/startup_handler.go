package handlers

import (
	"net/http"
	"sync"
)

// StartupStatus tracks the initialization progress
type StartupStatus struct {
	mu       sync.RWMutex
	ready    bool
	current  string
	progress int
	steps    []StartupStep
}

type StartupStep struct {
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
}

// NewStartupStatus creates a tracker for the named steps
func NewStartupStatus(steps ...string) *StartupStatus {
	s := &StartupStatus{current: "Initializing..."}
	for _, name := range steps {
		s.steps = append(s.steps, StartupStep{Name: name})
	}
	return s
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

	completed := 0
	for i := range s.steps {
		if s.steps[i].Name == stepName {
			s.steps[i].Completed = true
		}
		if s.steps[i].Completed {
			completed++
		}
	}
	if len(s.steps) > 0 {
		s.progress = completed * 100 / len(s.steps)
	}
}

// MarkReady marks the server as fully initialized
func (s *StartupStatus) MarkReady() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = true
	s.current = "Server ready"
	s.progress = 100
}

// IsReady returns whether the server is fully initialized
func (s *StartupStatus) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

type healthResponse struct {
	Ready    bool          `json:"ready"`
	Current  string        `json:"current"`
	Progress int           `json:"progress"`
	Steps    []StartupStep `json:"steps"`
}

// Health answers 200 once ready and 503 while starting, with the step list
func (s *StartupStatus) Health(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	resp := healthResponse{
		Ready:    s.ready,
		Current:  s.current,
		Progress: s.progress,
		Steps:    append([]StartupStep(nil), s.steps...),
	}
	s.mu.RUnlock()

	status := http.StatusOK
	if !resp.Ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
