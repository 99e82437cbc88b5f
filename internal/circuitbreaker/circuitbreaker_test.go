package circuitbreaker

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(threshold int) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	cb := New(Config{Name: "test", Threshold: threshold, Cooldown: time.Minute, HalfOpenTimeout: 10 * time.Second})
	cb.now = clock.now
	return cb, clock
}

func TestDefaults(t *testing.T) {
	cb := New(Config{})
	if cb.threshold != 5 || cb.cooldown != 5*time.Minute || cb.halfOpenTimeout != 30*time.Second || cb.name != "default" {
		t.Errorf("unexpected defaults: %+v", cb)
	}
	if cb.State() != StateClosed {
		t.Errorf("expected CLOSED, got %v", cb.State())
	}
}

func TestOpensAfterThreshold(t *testing.T) {
	cb, _ := newTestBreaker(3)

	for i := 0; i < 2; i++ {
		cb.RecordFailure()
		if !cb.Allow() {
			t.Fatalf("should still allow after %d failures", i+1)
		}
	}

	cb.RecordFailure()
	if cb.State() != StateOpen {
		t.Fatalf("expected OPEN, got %v", cb.State())
	}
	if cb.Allow() {
		t.Error("open breaker should block")
	}
}

func TestSuccessResetsFailures(t *testing.T) {
	cb, _ := newTestBreaker(2)

	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()

	if cb.State() != StateClosed {
		t.Errorf("non-consecutive failures should not open, got %v", cb.State())
	}
	if cb.Failures() != 1 {
		t.Errorf("expected 1 failure, got %d", cb.Failures())
	}
}

func TestHalfOpenProbe(t *testing.T) {
	tests := []struct {
		name    string
		succeed bool
		want    State
	}{
		{"probe succeeds", true, StateClosed},
		{"probe fails", false, StateOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb, clock := newTestBreaker(1)
			cb.RecordFailure()

			clock.advance(time.Minute)
			if !cb.Allow() {
				t.Fatal("expected probe to be allowed after cooldown")
			}
			if cb.State() != StateHalfOpen {
				t.Fatalf("expected HALF-OPEN, got %v", cb.State())
			}
			if cb.Allow() {
				t.Error("only one probe may run at a time")
			}

			if tt.succeed {
				cb.RecordSuccess()
			} else {
				cb.RecordFailure()
			}
			if cb.State() != tt.want {
				t.Errorf("expected %v, got %v", tt.want, cb.State())
			}
		})
	}
}

func TestHalfOpenTimeout(t *testing.T) {
	cb, clock := newTestBreaker(1)
	cb.RecordFailure()
	clock.advance(time.Minute)
	cb.Allow()

	clock.advance(10 * time.Second)
	if cb.Allow() {
		t.Error("expired probe should not allow new requests")
	}
	if cb.State() != StateOpen {
		t.Errorf("expected OPEN after probe timeout, got %v", cb.State())
	}
}

func TestReset(t *testing.T) {
	cb, _ := newTestBreaker(1)
	cb.RecordFailure()
	cb.Reset()

	if cb.State() != StateClosed || cb.Failures() != 0 || !cb.Allow() {
		t.Errorf("expected closed breaker after reset, got %v", cb.State())
	}
}
