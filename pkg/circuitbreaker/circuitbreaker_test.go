package circuitbreaker

import (
	"errors"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		FailureThreshold:    3,
		SuccessThreshold:    1,
		Timeout:             10 * time.Millisecond,
		HalfOpenMaxRequests: 1,
	}
}

func TestExecute_PassesThroughWhenClosed(t *testing.T) {
	cb := NewCircuitBreaker(testConfig())

	calls := 0
	err := cb.Execute(func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestExecute_OpensAfterConsecutiveFailures(t *testing.T) {
	cb := NewCircuitBreaker(testConfig())
	boom := errors.New("downstream down")

	for i := 0; i < 3; i++ {
		if err := cb.Execute(func() error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("failure %d = %v, want downstream error", i, err)
		}
	}

	err := cb.Execute(func() error {
		t.Fatal("call passed through an open breaker")
		return nil
	})
	if !errors.Is(err, ErrCircuitBreakerOpen) {
		t.Errorf("Execute on open breaker = %v, want ErrCircuitBreakerOpen", err)
	}
}

func TestExecute_RecoversThroughHalfOpen(t *testing.T) {
	cb := NewCircuitBreaker(testConfig())
	boom := errors.New("downstream down")

	for i := 0; i < 3; i++ {
		cb.Execute(func() error { return boom })
	}
	if err := cb.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitBreakerOpen) {
		t.Fatalf("Execute = %v, want ErrCircuitBreakerOpen", err)
	}

	time.Sleep(15 * time.Millisecond)

	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("half-open probe: %v", err)
	}
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Errorf("Execute after recovery: %v", err)
	}
}

func TestExecute_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(testConfig())
	boom := errors.New("flaky")

	cb.Execute(func() error { return boom })
	cb.Execute(func() error { return boom })
	cb.Execute(func() error { return nil })
	cb.Execute(func() error { return boom })
	cb.Execute(func() error { return boom })

	// Five calls but never three consecutive failures: still closed.
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Errorf("Execute = %v, want nil", err)
	}
}
