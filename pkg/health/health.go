// Package health provides Kubernetes-style liveness and readiness endpoints.
//
// Checks run periodically on a background goroutine; the HTTP endpoints only
// read the latest recorded state, so probes stay fast even when a check
// itself is slow or hanging.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// CheckFunc probes one component. A nil return means healthy.
type CheckFunc func(ctx context.Context) error

type check struct {
	name    string
	timeout time.Duration
	fn      CheckFunc

	mu      sync.RWMutex
	lastErr error
}

func (c *check) run(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	err := c.fn(checkCtx)
	cancel()

	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
}

func (c *check) err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Service aggregates liveness and readiness checks and serves probe
// endpoints. Readiness additionally honors a manual ready flag so the app
// can drain before shutdown.
type Service struct {
	mu        sync.RWMutex
	liveness  []*check
	readiness []*check
	ready     bool

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an empty health service. Register checks before calling Start.
func New() *Service {
	return &Service{}
}

// AddLivenessCheck registers a liveness check with a per-run timeout.
func (s *Service) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.liveness = append(s.liveness, &check{name: name, timeout: timeout, fn: fn})
}

// AddReadinessCheck registers a readiness check with a per-run timeout.
func (s *Service) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readiness = append(s.readiness, &check{name: name, timeout: timeout, fn: fn})
}

// SetReady flips the manual readiness flag. While false, ReadyEndpoint
// reports 503 regardless of check results.
func (s *Service) SetReady(ready bool) {
	s.mu.Lock()
	s.ready = ready
	s.mu.Unlock()
}

// Start runs every registered check once immediately and then on the given
// interval until ctx is cancelled or Stop is called.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		s.runAll(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runAll(ctx)
			}
		}
	}()
}

// Stop halts the background check loop and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
}

func (s *Service) runAll(ctx context.Context) {
	s.mu.RLock()
	checks := make([]*check, 0, len(s.liveness)+len(s.readiness))
	checks = append(checks, s.liveness...)
	checks = append(checks, s.readiness...)
	s.mu.RUnlock()

	for _, c := range checks {
		c.run(ctx)
	}
}

// LiveEndpoint serves the liveness probe: 200 while all liveness checks pass.
func (s *Service) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	checks := s.liveness
	s.mu.RUnlock()
	writeStatus(w, checks, true)
}

// ReadyEndpoint serves the readiness probe: 200 while the manual ready flag
// is set and all readiness checks pass.
func (s *Service) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	checks := s.readiness
	ready := s.ready
	s.mu.RUnlock()
	writeStatus(w, checks, ready)
}

func writeStatus(w http.ResponseWriter, checks []*check, ok bool) {
	results := make(map[string]string, len(checks))
	for _, c := range checks {
		if err := c.err(); err != nil {
			ok = false
			results[c.name] = err.Error()
		} else {
			results[c.name] = "ok"
		}
	}

	status := "ok"
	code := http.StatusOK
	if !ok {
		status = "unavailable"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks,omitempty"`
	}{Status: status, Checks: results})
}
