package health

import (
	"context"
	"runtime"

	"github.com/go-faster/errors"
)

// GoroutineCountCheck reports unhealthy when the process holds more
// goroutines than threshold. The server spawns one goroutine per stock
// write-back, so a runaway count points at a stuck database.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(_ context.Context) error {
		count := runtime.NumGoroutine()
		if count > threshold {
			return errors.Errorf("goroutine count %d exceeds threshold %d", count, threshold)
		}
		return nil
	}
}

// Pinger is the readiness surface of a connection pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck probes a store by pinging it. Used as the readiness check for
// the Postgres pool; the in-memory store registers no check at all.
func PingCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		if err := p.Ping(ctx); err != nil {
			return errors.Wrap(err, "ping")
		}
		return nil
	}
}
