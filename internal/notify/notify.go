// Package notify carries structured sale outcomes out of the core. The core
// only produces these events; rendering them as toasts or alerts is the UI's
// concern. Sinks replace the source system's implicit global listeners with
// an explicit, injected observer list.
package notify

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SaleCompleted describes a successfully settled sale.
type SaleCompleted struct {
	SaleID     string
	TerminalID string
	CustomerID string
	Lines      int
	Total      decimal.Decimal
}

// SaleRejected describes a sale-entry or checkout operation that failed with
// a recoverable domain error.
type SaleRejected struct {
	TerminalID string
	CustomerID string
	Err        error
}

// Sink receives sale outcomes. Implementations must not block.
type Sink interface {
	SaleCompleted(ctx context.Context, e SaleCompleted)
	SaleRejected(ctx context.Context, e SaleRejected)
}

// ZapSink logs outcomes through a zap logger.
type ZapSink struct {
	lg *zap.Logger
}

// NewZapSink creates a Sink that writes structured log events.
func NewZapSink(lg *zap.Logger) *ZapSink {
	return &ZapSink{lg: lg}
}

func (s *ZapSink) SaleCompleted(_ context.Context, e SaleCompleted) {
	s.lg.Info("sale completed",
		zap.String("sale_id", e.SaleID),
		zap.String("terminal_id", e.TerminalID),
		zap.String("customer_id", e.CustomerID),
		zap.Int("lines", e.Lines),
		zap.String("total", e.Total.StringFixed(2)),
	)
}

func (s *ZapSink) SaleRejected(_ context.Context, e SaleRejected) {
	s.lg.Warn("sale rejected",
		zap.String("terminal_id", e.TerminalID),
		zap.String("customer_id", e.CustomerID),
		zap.Error(e.Err),
	)
}

// Multi fans out every outcome to all sinks in order.
func Multi(sinks ...Sink) Sink {
	return multiSink(sinks)
}

type multiSink []Sink

func (m multiSink) SaleCompleted(ctx context.Context, e SaleCompleted) {
	for _, s := range m {
		s.SaleCompleted(ctx, e)
	}
}

func (m multiSink) SaleRejected(ctx context.Context, e SaleRejected) {
	for _, s := range m {
		s.SaleRejected(ctx, e)
	}
}
