package risk

import "testing"

func TestBreakerTripsAtThreshold(t *testing.T) {
	cb := NewCircuitBreaker(3)

	for i := 0; i < 2; i++ {
		cb.RecordFailure()
		if err := cb.Allow(); err != nil {
			t.Fatalf("breaker tripped early after %d failures: %v", i+1, err)
		}
	}

	cb.RecordFailure()
	if err := cb.Allow(); err != ErrCircuitBreakerOpen {
		t.Fatalf("expected open breaker, got %v", err)
	}
	if !cb.Halted() {
		t.Fatal("Halted should report true")
	}
}

func TestSuccessResetsStreak(t *testing.T) {
	cb := NewCircuitBreaker(2)

	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	if err := cb.Allow(); err != nil {
		t.Fatalf("interleaved successes must reset the streak: %v", err)
	}
}

func TestManualHaltAndResume(t *testing.T) {
	cb := NewCircuitBreaker(5)

	cb.Halt()
	if err := cb.Allow(); err != ErrCircuitBreakerOpen {
		t.Fatalf("expected open breaker, got %v", err)
	}

	cb.Resume()
	if err := cb.Allow(); err != nil {
		t.Fatalf("resumed breaker must allow, got %v", err)
	}
}

func TestResumeClearsFailureStreak(t *testing.T) {
	cb := NewCircuitBreaker(2)
	cb.RecordFailure()
	cb.RecordFailure()
	cb.Resume()

	cb.RecordFailure()
	if err := cb.Allow(); err != nil {
		t.Fatalf("streak must restart after resume: %v", err)
	}
}

func TestZeroThresholdDisablesBreaker(t *testing.T) {
	cb := NewCircuitBreaker(0)
	for i := 0; i < 100; i++ {
		cb.RecordFailure()
	}
	if err := cb.Allow(); err != nil {
		t.Fatalf("disabled breaker must always allow: %v", err)
	}
}

func TestNilBreakerIsInert(t *testing.T) {
	var cb *CircuitBreaker
	if err := cb.Allow(); err != nil {
		t.Fatalf("nil breaker must allow: %v", err)
	}
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.Halt()
	cb.Resume()
	if cb.Halted() {
		t.Fatal("nil breaker is never halted")
	}
}
