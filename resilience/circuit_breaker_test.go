package resilience

import (
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/httpware/errors"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestBreaker(config CircuitBreakerConfig) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	cb := NewCircuitBreaker(config)
	cb.now = clock.Now
	return cb, clock
}

var errTest = stderrors.New("test error")

func TestCircuitBreaker_StartsInClosedState(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig("test"))
	if cb.State() != StateClosed {
		t.Errorf("expected StateClosed, got %s", cb.State())
	}
	if cb.Name() != "test" {
		t.Errorf("expected name test, got %s", cb.Name())
	}
}

func TestCircuitBreaker_AllowsRequestsWhenClosed(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig("test"))

	var called bool
	err := cb.Execute(func() error {
		called = true
		return nil
	})
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if !called {
		t.Error("function was not called")
	}
}

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb, _ := newTestBreaker(CircuitBreakerConfig{Name: "test", MaxFailures: 3, Timeout: time.Second})

	for i := 0; i < 3; i++ {
		if err := cb.Execute(func() error { return errTest }); !stderrors.Is(err, errTest) {
			t.Fatalf("expected errTest, got %v", err)
		}
	}
	if cb.State() != StateOpen {
		t.Fatalf("expected StateOpen, got %s", cb.State())
	}

	err := cb.Execute(func() error {
		t.Error("function should not have been called")
		return nil
	})
	if !errors.IsCircuitOpen(err) {
		t.Errorf("expected CIRCUIT_OPEN, got %v", err)
	}
	if e, _ := errors.AsAppError(err); e.Details["breaker"] != "test" {
		t.Errorf("expected breaker detail, got %v", e.Details)
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb, _ := newTestBreaker(CircuitBreakerConfig{Name: "test", MaxFailures: 3})

	cb.Execute(func() error { return errTest })
	cb.Execute(func() error { return errTest })
	if cb.Failures() != 2 {
		t.Fatalf("expected 2 failures, got %d", cb.Failures())
	}
	cb.Execute(func() error { return nil })
	if cb.Failures() != 0 {
		t.Errorf("expected failures reset, got %d", cb.Failures())
	}
	cb.Execute(func() error { return errTest })
	if cb.State() != StateClosed {
		t.Errorf("expected StateClosed, got %s", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenAfterTimeout(t *testing.T) {
	cb, clock := newTestBreaker(CircuitBreakerConfig{Name: "test", MaxFailures: 1, Timeout: time.Minute})

	cb.Execute(func() error { return errTest })
	if cb.State() != StateOpen {
		t.Fatalf("expected StateOpen, got %s", cb.State())
	}

	clock.Advance(59 * time.Second)
	if cb.State() != StateOpen {
		t.Fatalf("expected StateOpen before timeout, got %s", cb.State())
	}
	clock.Advance(time.Second)
	if cb.State() != StateHalfOpen {
		t.Fatalf("expected StateHalfOpen, got %s", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenLimitsProbes(t *testing.T) {
	cb, clock := newTestBreaker(CircuitBreakerConfig{
		Name: "test", MaxFailures: 1, Timeout: time.Second, HalfOpenMaxCalls: 2,
	})
	cb.Execute(func() error { return errTest })
	clock.Advance(time.Second)

	if err := cb.Allow(); err != nil {
		t.Fatalf("first probe refused: %v", err)
	}
	if err := cb.Allow(); err != nil {
		t.Fatalf("second probe refused: %v", err)
	}
	if err := cb.Allow(); !errors.IsCircuitOpen(err) {
		t.Fatalf("third probe should be refused, got %v", err)
	}

	cb.Record(true)
	if cb.State() != StateHalfOpen {
		t.Fatalf("one success should not close, got %s", cb.State())
	}
	cb.Record(true)
	if cb.State() != StateClosed {
		t.Errorf("expected StateClosed, got %s", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb, clock := newTestBreaker(CircuitBreakerConfig{Name: "test", MaxFailures: 1, Timeout: time.Second})
	cb.Execute(func() error { return errTest })
	clock.Advance(time.Second)

	cb.Execute(func() error { return errTest })
	if cb.State() != StateOpen {
		t.Fatalf("expected StateOpen, got %s", cb.State())
	}

	// the open timer restarts from the probe failure
	clock.Advance(500 * time.Millisecond)
	if cb.State() != StateOpen {
		t.Errorf("expected StateOpen, got %s", cb.State())
	}
}

func TestCircuitBreaker_ExecutePanicCountsAsFailure(t *testing.T) {
	cb, clock := newTestBreaker(CircuitBreakerConfig{Name: "test", MaxFailures: 1, Timeout: time.Second, HalfOpenMaxCalls: 1})
	cb.Execute(func() error { return errTest })
	clock.Advance(time.Second)

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected the panic to propagate")
			}
		}()
		cb.Execute(func() error { panic("boom") })
	}()
	if cb.State() != StateOpen {
		t.Fatalf("expected StateOpen after panicking probe, got %s", cb.State())
	}

	clock.Advance(time.Second)
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("expected probe allowed, got %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("expected StateClosed, got %s", cb.State())
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb, _ := newTestBreaker(CircuitBreakerConfig{Name: "test", MaxFailures: 1})
	cb.Execute(func() error { return errTest })
	cb.Reset()
	if cb.State() != StateClosed || cb.Failures() != 0 {
		t.Errorf("expected closed with no failures, got %s/%d", cb.State(), cb.Failures())
	}
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	var transitions []string
	cb, clock := newTestBreaker(CircuitBreakerConfig{
		Name:        "test",
		MaxFailures: 1,
		Timeout:     time.Second,
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, name+":"+from.String()+"->"+to.String())
		},
	})

	cb.Execute(func() error { return errTest })
	clock.Advance(time.Second)
	cb.Execute(func() error { return nil })

	want := []string{"test:closed->open", "test:open->half-open", "test:half-open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("expected %v, got %v", want, transitions)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d: expected %s, got %s", i, want[i], transitions[i])
		}
	}
}

func TestCircuitBreaker_Defaults(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "d"})
	if cb.config.MaxFailures != 5 || cb.config.Timeout != 30*time.Second || cb.config.HalfOpenMaxCalls != 1 {
		t.Errorf("unexpected defaults %+v", cb.config)
	}
}

func TestCircuitBreaker_ConcurrentAccess(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "test", MaxFailures: 1000})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cb.Execute(func() error {
				if i%2 == 0 {
					return errTest
				}
				return nil
			})
			_ = cb.State()
		}(i)
	}
	wg.Wait()

	if cb.State() != StateClosed {
		t.Errorf("expected StateClosed, got %s", cb.State())
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
		{State(9), "unknown"},
	}
	for _, tc := range tests {
		if got := tc.state.String(); got != tc.want {
			t.Errorf("expected %s, got %s", tc.want, got)
		}
	}
}
