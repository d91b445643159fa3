package satellite

import (
	"sync"
	"time"
)

// CircuitBreaker gates the primary provider. It opens after a run of
// consecutive failures and skips the primary until the recovery timeout
// elapses. A single success fully resets the counter. State is process-local
// and owned by one provider chain.
type CircuitBreaker struct {
	mu               sync.Mutex
	failureCount     int
	lastFailure      time.Time
	failureThreshold int
	recoveryTimeout  time.Duration
	now              func() time.Time
}

// NewCircuitBreaker creates a breaker that opens after failureThreshold
// consecutive failures and stays open for recoveryTimeout.
func NewCircuitBreaker(failureThreshold int, recoveryTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		now:              time.Now,
	}
}

// Allow reports whether a call to the gated provider may proceed.
func (b *CircuitBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failureCount < b.failureThreshold {
		return true
	}
	return b.now().Sub(b.lastFailure) >= b.recoveryTimeout
}

// RecordSuccess resets the failure counter.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failureCount = 0
}

// RecordFailure increments the failure counter and stamps the failure time.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failureCount++
	b.lastFailure = b.now()
}
