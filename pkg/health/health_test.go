package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func healthyCheck() CheckFunc {
	return func(_ context.Context) error { return nil }
}

func brokenCheck(msg string) CheckFunc {
	return func(_ context.Context) error { return errors.New(msg) }
}

func probeJSON(t *testing.T, w *httptest.ResponseRecorder) probeStatus {
	t.Helper()
	var body probeStatus
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestLiveEndpointHealthy(t *testing.T) {
	s := New()
	s.AddLivenessCheck("goroutines", time.Second, healthyCheck())

	w := httptest.NewRecorder()
	s.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "ok", probeJSON(t, w).Status)
}

func TestLiveEndpointReportsFailure(t *testing.T) {
	s := New()
	s.AddLivenessCheck("goroutines", time.Second, brokenCheck("leak suspected"))

	// Probes start healthy and flip only after failAfter consecutive misses.
	ctx := context.Background()
	p := s.live[0]
	p.observe(ctx)
	p.observe(ctx)

	w := httptest.NewRecorder()
	s.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusOK, w.Code, "two misses stay below the threshold")

	p.observe(ctx)

	w = httptest.NewRecorder()
	s.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	body := probeJSON(t, w)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "leak suspected", body.Checks["goroutines"])
}

func TestReadyEndpointGate(t *testing.T) {
	s := New()
	s.AddReadinessCheck("postgres", time.Second, healthyCheck())

	// Not ready until the wiring flips the gate.
	w := httptest.NewRecorder()
	s.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, probeJSON(t, w).Checks, "_readiness")

	s.SetReady(true)
	w = httptest.NewRecorder()
	s.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	// Shutdown closes the gate again.
	s.SetReady(false)
	w = httptest.NewRecorder()
	s.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestReadyEndpointFailingProbe(t *testing.T) {
	s := New()
	s.AddReadinessCheck("postgres", time.Second, brokenCheck("connection refused"))
	s.AddReadinessCheck("other", time.Second, healthyCheck())
	s.SetReady(true)

	ctx := context.Background()
	for range 3 {
		s.steady[0].observe(ctx)
	}

	w := httptest.NewRecorder()
	s.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	body := probeJSON(t, w)
	assert.Equal(t, "connection refused", body.Checks["postgres"])
	assert.NotContains(t, body.Checks, "other")
}

func TestIsReady(t *testing.T) {
	s := New()
	s.AddReadinessCheck("postgres", time.Second, healthyCheck())

	assert.False(t, s.IsReady())
	s.SetReady(true)
	assert.True(t, s.IsReady())

	// An unhealthy probe vetoes the open gate.
	s.steady[0].check = brokenCheck("down")
	for range 3 {
		s.steady[0].observe(context.Background())
	}
	assert.False(t, s.IsReady())
}

func TestProbeRecovers(t *testing.T) {
	failing := true
	s := New()
	s.AddLivenessCheck("flaky", time.Second, func(_ context.Context) error {
		if failing {
			return errors.New("down")
		}
		return nil
	})
	p := s.live[0]
	ctx := context.Background()

	for range 3 {
		p.observe(ctx)
	}
	assert.False(t, p.healthy.Load())

	// recoverAfter is 1: a single pass brings the probe back.
	failing = false
	p.observe(ctx)
	assert.True(t, p.healthy.Load())
}

func TestProbeLastError(t *testing.T) {
	s := New()
	s.AddLivenessCheck("goroutines", time.Second, brokenCheck("timeout"))
	p := s.live[0]

	assert.Nil(t, p.failure())
	p.observe(context.Background())
	assert.EqualError(t, p.failure(), "timeout")
}

func TestEndpointsNoProbes(t *testing.T) {
	s := New()
	s.SetReady(true)

	w := httptest.NewRecorder()
	s.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	s.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStopIdempotent(t *testing.T) {
	s := New()
	s.AddLivenessCheck("goroutines", time.Second, healthyCheck())

	s.Start(context.Background(), 100*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	s.Stop()
	s.Stop()
}

func TestConcurrentObserveAndServe(t *testing.T) {
	s := New()
	s.AddLivenessCheck("goroutines", time.Second, brokenCheck("err"))
	s.AddReadinessCheck("postgres", time.Second, healthyCheck())
	s.SetReady(true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx, 10*time.Millisecond)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				s.IsReady()

				w := httptest.NewRecorder()
				s.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))

				w = httptest.NewRecorder()
				s.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			}
		}()
	}
	wg.Wait()
	s.Stop()
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(100000)(context.Background()))

	err := GoroutineCountCheck(0)(context.Background())
	assert.ErrorContains(t, err, "exceeds threshold")
}

type fakePinger struct {
	err error
}

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestPingCheck(t *testing.T) {
	assert.NoError(t, PingCheck(fakePinger{})(context.Background()))

	err := PingCheck(fakePinger{err: errors.New("refused")})(context.Background())
	assert.ErrorContains(t, err, "refused")
}
