package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var errTest = errors.New("test error")

// clock is a manually advanced time source.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestBreaker(maxFailures int, reset time.Duration) (*Breaker, *clock) {
	c := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := New(maxFailures, reset)
	b.now = c.now
	return b, c
}

func fail() error    { return errTest }
func succeed() error { return nil }

func run(b *Breaker, fn func() error) error {
	return b.Do(context.Background(), func(context.Context) error { return fn() })
}

func TestNew(t *testing.T) {
	b := New(5, 30*time.Second)
	if b.State() != Closed {
		t.Errorf("initial state: got %v, want closed", b.State())
	}
	if New(0, time.Second).maxFailures != 1 {
		t.Error("maxFailures below 1 must be clamped")
	}
}

func TestDo_PropagatesError(t *testing.T) {
	b := New(3, time.Second)
	if err := run(b, fail); !errors.Is(err, errTest) {
		t.Errorf("expected errTest, got %v", err)
	}
	if err := run(b, succeed); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestDo_OpensAfterMaxFailures(t *testing.T) {
	for maxF := 1; maxF <= 4; maxF++ {
		b, _ := newTestBreaker(maxF, time.Second)
		for i := 0; i < maxF-1; i++ {
			run(b, fail)
		}
		if b.State() != Closed {
			t.Fatalf("maxFailures=%d: open after %d failures", maxF, maxF-1)
		}
		run(b, fail)
		if b.State() != Open {
			t.Fatalf("maxFailures=%d: not open after %d failures", maxF, maxF)
		}
		err := run(b, func() error {
			t.Error("function should not be called when circuit is open")
			return nil
		})
		if !errors.Is(err, ErrCircuitOpen) {
			t.Errorf("expected ErrCircuitOpen, got %v", err)
		}
	}
}

func TestDo_SuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(3, time.Second)
	run(b, fail)
	run(b, fail)
	run(b, succeed)
	run(b, fail)
	run(b, fail)
	if b.State() != Closed {
		t.Error("state should be Closed after success reset")
	}
}

func TestHalfOpen_TrialSuccessCloses(t *testing.T) {
	b, c := newTestBreaker(2, time.Minute)
	run(b, fail)
	run(b, fail)

	c.advance(30 * time.Second)
	if err := run(b, succeed); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("before reset timeout: got %v", err)
	}

	c.advance(31 * time.Second)
	called := false
	if err := run(b, func() error { called = true; return nil }); err != nil {
		t.Fatalf("trial: %v", err)
	}
	if !called || b.State() != Closed {
		t.Errorf("called=%v state=%v", called, b.State())
	}
}

func TestHalfOpen_TrialFailureReopens(t *testing.T) {
	b, c := newTestBreaker(3, time.Minute)
	for i := 0; i < 3; i++ {
		run(b, fail)
	}
	c.advance(2 * time.Minute)
	run(b, fail)
	if b.State() != Open {
		t.Errorf("state = %v, want open", b.State())
	}
}

func TestHalfOpen_SingleTrial(t *testing.T) {
	b, c := newTestBreaker(1, time.Minute)
	run(b, fail)
	c.advance(2 * time.Minute)

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan error)
	go func() {
		done <- run(b, func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started
	if b.State() != HalfOpen {
		t.Errorf("state during trial = %v", b.State())
	}
	if err := run(b, succeed); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("second call during trial: got %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Errorf("trial: %v", err)
	}
	if b.State() != Closed {
		t.Errorf("state = %v, want closed", b.State())
	}
}

func TestDo_CancellationIsNotAFailure(t *testing.T) {
	b, _ := newTestBreaker(1, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := b.Do(ctx, func(ctx context.Context) error { return ctx.Err() })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v", err)
	}
	if b.State() != Closed {
		t.Errorf("state = %v, want closed", b.State())
	}
}

func TestOnStateChange(t *testing.T) {
	b, c := newTestBreaker(1, time.Minute)
	var got []string
	b.OnStateChange(func(from, to State) { got = append(got, from.String()+">"+to.String()) })

	run(b, fail)
	c.advance(2 * time.Minute)
	run(b, succeed)
	run(b, fail)
	c.advance(2 * time.Minute)
	run(b, fail)

	want := []string{"closed>open", "open>half-open", "half-open>closed", "closed>open", "open>half-open", "half-open>open"}
	if len(got) != len(want) {
		t.Fatalf("transitions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("transition %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestDo_ConcurrentAccess(t *testing.T) {
	b := New(100, time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if n%2 == 0 {
				run(b, succeed)
			} else {
				run(b, fail)
			}
			b.State()
		}(i)
	}
	wg.Wait()
}

func TestState_String(t *testing.T) {
	for s, want := range map[State]string{Closed: "closed", Open: "open", HalfOpen: "half-open", State(9): "unknown"} {
		if s.String() != want {
			t.Errorf("%d.String() = %q, want %q", s, s.String(), want)
		}
	}
}
