package llm

import (
	"testing"
	"time"
)

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)

	for i := 0; i < 2; i++ {
		if !cb.Allow() {
			t.Fatal("expected circuit to allow calls below the failure threshold")
		}
		cb.RecordFailure()
	}
	if cb.State() != CircuitClosed {
		t.Fatalf("expected circuit still closed, got %s", cb.State())
	}

	cb.RecordFailure()
	if cb.State() != CircuitOpen {
		t.Fatalf("expected circuit open after hitting threshold, got %s", cb.State())
	}
	if cb.Allow() {
		t.Fatal("expected circuit to reject calls while open")
	}
}

func TestCircuitBreaker_HalfOpenProbeAfterTimeout(t *testing.T) {
	cb := NewCircuitBreaker(1, 10*time.Millisecond)
	cb.RecordFailure()
	if cb.State() != CircuitOpen {
		t.Fatalf("expected circuit open, got %s", cb.State())
	}

	time.Sleep(15 * time.Millisecond)
	if !cb.Allow() {
		t.Fatal("expected circuit to allow a probe after the recovery timeout")
	}
	if cb.State() != CircuitHalfOpen {
		t.Fatalf("expected circuit half_open after probe allowed, got %s", cb.State())
	}
}

func TestCircuitBreaker_FailureInHalfOpenReopens(t *testing.T) {
	cb := NewCircuitBreaker(1, 10*time.Millisecond)
	cb.RecordFailure()
	time.Sleep(15 * time.Millisecond)
	cb.Allow() // transitions to half-open

	cb.RecordFailure()
	if cb.State() != CircuitOpen {
		t.Fatalf("expected a failed probe to re-open the circuit, got %s", cb.State())
	}
}

func TestCircuitBreaker_SuccessInHalfOpenCloses(t *testing.T) {
	cb := NewCircuitBreaker(1, 10*time.Millisecond)
	cb.RecordFailure()
	time.Sleep(15 * time.Millisecond)
	cb.Allow() // transitions to half-open

	cb.RecordSuccess()
	if cb.State() != CircuitClosed {
		t.Fatalf("expected a successful probe to close the circuit, got %s", cb.State())
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := NewCircuitBreaker(1, time.Minute)
	cb.RecordFailure()
	if cb.State() != CircuitOpen {
		t.Fatalf("expected circuit open, got %s", cb.State())
	}
	cb.Reset()
	if cb.State() != CircuitClosed {
		t.Fatalf("expected Reset to close the circuit, got %s", cb.State())
	}
	if !cb.Allow() {
		t.Fatal("expected Allow to succeed after Reset")
	}
}
