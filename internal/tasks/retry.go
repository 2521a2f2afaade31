package tasks

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"time"

	"github.com/joeychilson/soundify/internal/shared"
)

// Retrier is the per-task retry state machine: attempt count and next
// backoff are explicit state rather than an implicit loop-with-sleep, so
// cancellation and tests stay deterministic.
type Retrier struct {
	maxAttempts int
	attempt     int
	next        time.Duration
	maxDelay    time.Duration
	jitter      func(time.Duration) time.Duration
}

// NewRetrier creates a Retrier allowing maxAttempts total attempts with
// exponential backoff starting at baseDelay.
func NewRetrier(maxAttempts int, baseDelay time.Duration) *Retrier {
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return &Retrier{
		maxAttempts: maxAttempts,
		next:        baseDelay,
		maxDelay:    30 * time.Second,
		jitter:      halfJitter,
	}
}

// Next returns the backoff to wait before the next attempt, or ok=false when
// attempts are exhausted.
func (r *Retrier) Next() (time.Duration, bool) {
	r.attempt++
	if r.attempt >= r.maxAttempts {
		return 0, false
	}
	delay := r.jitter(r.next)
	r.next *= 2
	if r.next > r.maxDelay {
		r.next = r.maxDelay
	}
	return delay, true
}

// Attempt returns the number of attempts consumed so far.
func (r *Retrier) Attempt() int {
	return r.attempt
}

// halfJitter keeps at least half the delay and randomizes the rest, spreading
// retries from workers that were rate-limited at the same instant.
func halfJitter(d time.Duration) time.Duration {
	half := d / 2
	return half + time.Duration(rand.Int63n(int64(half)+1))
}

// Transient reports whether err is a retryable provider failure: an explicit
// rate-limit signal, a timeout, or a network-level error.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, shared.ErrRateLimited) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// sleepCtx waits for d or until ctx is cancelled, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
