package satellite

import (
	"testing"
	"time"
)

func testBreaker(threshold int, recovery time.Duration) (*CircuitBreaker, *time.Time) {
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b := NewCircuitBreaker(threshold, recovery)
	b.now = func() time.Time { return clock }
	return b, &clock
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b, _ := testBreaker(3, 5*time.Minute)

	for i := 0; i < 2; i++ {
		b.RecordFailure()
		if !b.Allow() {
			t.Fatalf("breaker open after %d failures, threshold is 3", i+1)
		}
	}

	b.RecordFailure()
	if b.Allow() {
		t.Fatal("breaker should be open after 3 consecutive failures")
	}
}

func TestBreaker_RecoveryTimeout(t *testing.T) {
	b, clock := testBreaker(2, 5*time.Minute)

	b.RecordFailure()
	b.RecordFailure()
	if b.Allow() {
		t.Fatal("breaker should be open")
	}

	*clock = clock.Add(4 * time.Minute)
	if b.Allow() {
		t.Fatal("breaker should stay open before recovery timeout")
	}

	*clock = clock.Add(time.Minute)
	if !b.Allow() {
		t.Fatal("breaker should allow a probe after recovery timeout")
	}
}

func TestBreaker_SingleSuccessResets(t *testing.T) {
	b, _ := testBreaker(3, 5*time.Minute)

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()

	// The counter is fully reset, not decremented.
	b.RecordFailure()
	b.RecordFailure()
	if !b.Allow() {
		t.Fatal("breaker should still be closed: success resets the count")
	}
}
