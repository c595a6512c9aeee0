// Package health exposes the /livez and /readyz probes for the shop server.
//
// Probes run in background goroutines on a fixed interval and debounce with
// consecutive-failure and consecutive-success thresholds, so a single slow
// database ping during a checkout burst does not flap the pod out of the
// load balancer.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc probes one dependency. A nil return means healthy.
type CheckFunc func(ctx context.Context) error

// probe is one registered check plus its debounced state.
//
// observe() runs on a single goroutine per probe, so the consecutive
// counters need no locking. healthy and lastErr are read by the HTTP
// handlers from arbitrary goroutines and go through atomics.
type probe struct {
	name    string
	timeout time.Duration
	check   CheckFunc

	failAfter    int
	recoverAfter int

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	fails int
	oks   int
}

func newProbe(name string, timeout time.Duration, check CheckFunc) *probe {
	p := &probe{
		name:    name,
		timeout: timeout,
		check:   check,
		// Three misses in a row before going unhealthy, one pass to recover.
		failAfter:    3,
		recoverAfter: 1,
	}
	p.healthy.Store(true)
	return p
}

func (p *probe) failure() error {
	if ptr := p.lastErr.Load(); ptr != nil && *ptr != nil {
		return *ptr
	}
	return nil
}

// observe runs the check once and folds the result into the thresholds.
// Single-goroutine only.
func (p *probe) observe(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.check(checkCtx)
	p.lastErr.Store(&err)

	if err != nil {
		p.oks = 0
		p.fails++
		if p.fails >= p.failAfter {
			p.healthy.Store(false)
		}
		return
	}
	p.fails = 0
	p.oks++
	if p.oks >= p.recoverAfter {
		p.healthy.Store(true)
	}
}

// Service owns the server's liveness and readiness probes.
//
// Liveness answers "is the process stuck" (goroutine leaks); readiness
// answers "can this instance take sales" (Postgres reachable, wiring
// finished). The server boots not-ready and flips ready only after the
// stock ledger is loaded; shutdown flips it back before draining.
type Service struct {
	ready atomic.Bool

	mu     sync.RWMutex
	live   []*probe
	steady []*probe
	cancel context.CancelFunc
}

// New returns a Service with no probes, in the not-ready state.
func New() *Service {
	return &Service{}
}

// AddLivenessCheck registers a probe behind /livez.
func (s *Service) AddLivenessCheck(name string, timeout time.Duration, check CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live = append(s.live, newProbe(name, timeout, check))
}

// AddReadinessCheck registers a probe behind /readyz.
func (s *Service) AddReadinessCheck(name string, timeout time.Duration, check CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steady = append(s.steady, newProbe(name, timeout, check))
}

// Start launches one goroutine per registered probe, each observing on the
// given interval until the context is cancelled or Stop is called. Register
// all probes first.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.cancel = cancel
	probes := make([]*probe, 0, len(s.live)+len(s.steady))
	probes = append(probes, s.live...)
	probes = append(probes, s.steady...)
	s.mu.Unlock()

	for _, p := range probes {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			p.observe(ctx)
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					p.observe(ctx)
				}
			}
		}()
	}
}

// Stop cancels the probe goroutines. Safe to call more than once.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// SetReady flips the manual readiness gate: true once startup wiring is
// done, false at the top of graceful shutdown.
func (s *Service) SetReady(ready bool) {
	s.ready.Store(ready)
}

// IsReady reports whether the gate is open and every readiness probe is
// currently healthy.
func (s *Service) IsReady() bool {
	if !s.ready.Load() {
		return false
	}

	s.mu.RLock()
	probes := s.steady
	s.mu.RUnlock()

	for _, p := range probes {
		if !p.healthy.Load() {
			return false
		}
	}
	return true
}

// LiveEndpoint serves /livez: 200 while every liveness probe is healthy,
// 503 with the failing probes otherwise.
func (s *Service) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	probes := make([]*probe, len(s.live))
	copy(probes, s.live)
	s.mu.RUnlock()

	writeProbeStatus(w, failingProbes(probes))
}

// ReadyEndpoint serves /readyz: 200 once the gate is open and every
// readiness probe is healthy, 503 with details otherwise.
func (s *Service) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	probes := make([]*probe, len(s.steady))
	copy(probes, s.steady)
	s.mu.RUnlock()

	failures := failingProbes(probes)
	if !s.ready.Load() {
		failures["_readiness"] = "service is not ready"
	}
	writeProbeStatus(w, failures)
}

// failingProbes maps each unhealthy probe to its last recorded error.
// Probes are never re-run on request.
func failingProbes(probes []*probe) map[string]string {
	failures := make(map[string]string)
	for _, p := range probes {
		if p.healthy.Load() {
			continue
		}
		if err := p.failure(); err != nil {
			failures[p.name] = err.Error()
		} else {
			failures[p.name] = "check is unhealthy"
		}
	}
	return failures
}

type probeStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func writeProbeStatus(w http.ResponseWriter, failures map[string]string) {
	w.Header().Set("Content-Type", "application/json")

	resp := probeStatus{Status: "ok"}
	code := http.StatusOK
	if len(failures) > 0 {
		resp.Status = "unhealthy"
		resp.Checks = failures
		code = http.StatusServiceUnavailable
	}

	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
