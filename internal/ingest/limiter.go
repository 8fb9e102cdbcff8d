package ingest

// limiter.go serializes ingestion runs.
//
// The history table has a single writer, so the service holds a limiter with
// one slot. A run that cannot get the slot within maxWait fails with
// ErrIngestBusy. WaitForDrain lets servers finish the active run before
// shutting down.

import (
	"context"
	"sync"
	"time"
)

// DefaultMaxWait is how long a run waits for the writer slot.
const DefaultMaxWait = 30 * time.Second

type busyError struct{}

func (busyError) Error() string { return "another ingestion is in progress, please try again later" }

// Busy marks the error as a retryable contention failure.
func (busyError) Busy() bool { return true }

// ErrIngestBusy is returned when the writer slot stays taken past maxWait.
var ErrIngestBusy error = busyError{}

// Limiter is a counting semaphore with a bounded wait.
type Limiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// NewLimiter creates a limiter with the given number of slots.
func NewLimiter(slots int, maxWait time.Duration) *Limiter {
	if slots <= 0 {
		slots = 1
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}

	return &Limiter{
		semaphore: make(chan struct{}, slots),
		maxWait:   maxWait,
	}
}

// Acquire waits for a slot. Returns ErrIngestBusy if maxWait expires, or the
// context error if ctx ends first. The caller MUST call Release on success.
func (l *Limiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil

	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrIngestBusy
	}
}

// TryAcquire takes a slot without blocking.
func (l *Limiter) TryAcquire() bool {
	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return true
	default:
		return false
	}
}

// Release frees a slot taken by Acquire or TryAcquire.
func (l *Limiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()

	<-l.semaphore
}

// Active returns the number of runs holding a slot.
func (l *Limiter) Active() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// WaitForDrain blocks until no run is active or ctx ends.
func (l *Limiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.Active() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// LimiterStatus is a snapshot of the limiter state.
type LimiterStatus struct {
	Active    int `json:"active"`
	Available int `json:"available"`
	Slots     int `json:"slots"`
}

// Status returns the current limiter state for health reporting.
func (l *Limiter) Status() LimiterStatus {
	return LimiterStatus{
		Active:    l.Active(),
		Available: cap(l.semaphore) - len(l.semaphore),
		Slots:     cap(l.semaphore),
	}
}
