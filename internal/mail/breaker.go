package mail

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"
)

var ErrCircuitOpen = errors.New("mail circuit open")

// BreakerTransport stops calling the wrapped transport after threshold
// consecutive failures and fails fast until reset has elapsed. The job queue
// retries ErrCircuitOpen like any other transient failure.
type BreakerTransport struct {
	next      Transport
	threshold int32
	reset     time.Duration
	logger    *slog.Logger

	failures  int32
	openUntil int64 // unix nano
}

func NewBreakerTransport(next Transport, threshold int, reset time.Duration, logger *slog.Logger) *BreakerTransport {
	if threshold <= 0 {
		threshold = 5
	}
	if reset <= 0 {
		reset = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BreakerTransport{next: next, threshold: int32(threshold), reset: reset, logger: logger}
}

func (b *BreakerTransport) isOpen() bool {
	if atomic.LoadInt32(&b.failures) < b.threshold {
		return false
	}

	if time.Now().UnixNano() < atomic.LoadInt64(&b.openUntil) {
		return true
	}

	// half-open: let one request probe the transport
	atomic.StoreInt32(&b.failures, b.threshold-1)
	return false
}

func (b *BreakerTransport) recordFailure() {
	v := atomic.AddInt32(&b.failures, 1)
	if v >= b.threshold {
		atomic.StoreInt64(&b.openUntil, time.Now().Add(b.reset).UnixNano())
		b.logger.Warn("mail circuit opened", slog.Int("failures", int(v)), slog.Duration("reset", b.reset))
	}
}

func (b *BreakerTransport) Send(ctx context.Context, msg Message) error {
	if b.isOpen() {
		return ErrCircuitOpen
	}

	if err := b.next.Send(ctx, msg); err != nil {
		b.recordFailure()
		return err
	}

	atomic.StoreInt32(&b.failures, 0)
	return nil
}
