package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errProbe = errors.New("probe failure")

func failingOp(ctx context.Context) error { return errProbe }
func okOp(ctx context.Context) error      { return nil }

func tripBreaker(t *testing.T, cb *CircuitBreaker, failures int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < failures; i++ {
		if err := cb.Execute(ctx, failingOp); !errors.Is(err, errProbe) {
			t.Fatalf("Execute %d = %v, want errProbe", i, err)
		}
	}
}

func TestCircuitBreaker_Defaults(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{})

	if cb.config.MaxFailures != 5 {
		t.Errorf("MaxFailures = %d, want 5", cb.config.MaxFailures)
	}
	if cb.config.ResetTimeout != 30*time.Second {
		t.Errorf("ResetTimeout = %v, want 30s", cb.config.ResetTimeout)
	}
	if cb.State() != StateClosed {
		t.Errorf("State = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 3, ResetTimeout: time.Minute})

	tripBreaker(t, cb, 3)

	if cb.State() != StateOpen {
		t.Fatalf("State = %v, want open", cb.State())
	}

	// Calls are rejected without running the operation.
	ran := false
	err := cb.Execute(context.Background(), func(ctx context.Context) error {
		ran = true
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Execute = %v, want ErrCircuitOpen", err)
	}
	if ran {
		t.Error("operation should not run while circuit is open")
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 3, ResetTimeout: time.Minute})
	ctx := context.Background()

	tripBreaker(t, cb, 2)
	if err := cb.Execute(ctx, okOp); err != nil {
		t.Fatalf("Execute = %v", err)
	}
	tripBreaker(t, cb, 2)

	if cb.State() != StateClosed {
		t.Errorf("State = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: 20 * time.Millisecond})
	ctx := context.Background()

	tripBreaker(t, cb, 1)
	if cb.State() != StateOpen {
		t.Fatalf("State = %v, want open", cb.State())
	}

	time.Sleep(30 * time.Millisecond)
	if cb.State() != StateHalfOpen {
		t.Fatalf("State = %v, want half-open", cb.State())
	}

	// Successful probe closes the circuit.
	if err := cb.Execute(ctx, okOp); err != nil {
		t.Fatalf("probe Execute = %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("State after probe = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: 20 * time.Millisecond})
	ctx := context.Background()

	tripBreaker(t, cb, 1)
	time.Sleep(30 * time.Millisecond)

	if err := cb.Execute(ctx, failingOp); !errors.Is(err, errProbe) {
		t.Fatalf("probe Execute = %v, want errProbe", err)
	}
	if cb.State() != StateOpen {
		t.Errorf("State after failed probe = %v, want open", cb.State())
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(42), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
