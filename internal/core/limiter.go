package core

// limiter.go caps the number of classification calls in flight across all
// sessions. When every slot is taken a submission waits up to maxWait and then
// fails with ErrTooManyClassifications, which surfaces as a transport failure.
//
// WaitForDrain lets shutdown wait for in-flight calls so their sessions still
// receive an outcome.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyClassifications is returned when all slots are occupied and the
// wait timeout expires.
var ErrTooManyClassifications = errors.New("too many concurrent classifications")

// DefaultMaxConcurrent is the default limit for parallel classification calls.
const DefaultMaxConcurrent = 4

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 30 * time.Second

// Limiter bounds concurrent classification calls with a semaphore.
type Limiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu      sync.RWMutex
	active  int
	waiting int
}

// NewLimiter allows at most maxConcurrent simultaneous calls. Callers that
// cannot acquire a slot within maxWait receive ErrTooManyClassifications.
func NewLimiter(maxConcurrent int, maxWait time.Duration) *Limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}

	return &Limiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire waits for a slot. Returns nil on success, ErrTooManyClassifications
// if the wait times out, or the context error. Pair with Release.
func (l *Limiter) Acquire(ctx context.Context) error {
	select {
	case l.semaphore <- struct{}{}:
		l.track(1, 0)
		return nil
	default:
	}

	l.track(0, 1)
	defer l.track(0, -1)

	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.semaphore <- struct{}{}:
		l.track(1, 0)
		return nil
	case <-timer.C:
		return ErrTooManyClassifications
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Limiter) track(active, waiting int) {
	l.mu.Lock()
	l.active += active
	l.waiting += waiting
	l.mu.Unlock()
}

// Release returns a previously acquired slot.
// Must be called exactly once for each successful Acquire.
func (l *Limiter) Release() {
	l.track(-1, 0)
	<-l.semaphore
}

// ActiveCount returns the number of calls in flight.
func (l *Limiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// MaxConcurrent returns the slot count.
func (l *Limiter) MaxConcurrent() int {
	return cap(l.semaphore)
}

// Available returns the number of available slots.
func (l *Limiter) Available() int {
	return cap(l.semaphore) - len(l.semaphore)
}

// WaitForDrain blocks until no call is in flight or ctx is done.
func (l *Limiter) WaitForDrain(ctx context.Context) error {
	if l.ActiveCount() == 0 {
		return nil
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if l.ActiveCount() == 0 {
				return nil
			}
		}
	}
}

// LimiterStatus is a snapshot of the limiter's state. Waiting counts
// submissions queued for a slot.
type LimiterStatus struct {
	Active        int `json:"active"`
	Waiting       int `json:"waiting"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state for the health endpoint.
func (l *Limiter) Status() LimiterStatus {
	l.mu.RLock()
	active, waiting := l.active, l.waiting
	l.mu.RUnlock()

	return LimiterStatus{
		Active:        active,
		Waiting:       waiting,
		Available:     cap(l.semaphore) - len(l.semaphore),
		MaxConcurrent: cap(l.semaphore),
	}
}
