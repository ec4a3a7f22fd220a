package ratelimit

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(perMinute, perDay int) (*Limiter, *fakeClock) {
	clk := &fakeClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	return New(perMinute, perDay).WithClock(clk.Now), clk
}

func TestTryAcquire_PerMinuteWindow(t *testing.T) {
	l, clk := newTestLimiter(2, 100)

	for i := 0; i < 2; i++ {
		if d := l.TryAcquire(); !d.Allowed {
			t.Fatalf("acquire %d: expected allowed, got %q", i, d.Reason)
		}
	}

	d := l.TryAcquire()
	if d.Allowed {
		t.Fatal("third acquire within a minute should be denied")
	}
	if d.Reason != ReasonMinuteLimit {
		t.Fatalf("reason = %q, want %q", d.Reason, ReasonMinuteLimit)
	}

	clk.Advance(61 * time.Second)
	if d := l.TryAcquire(); !d.Allowed {
		t.Fatalf("acquire after window should be allowed, got %q", d.Reason)
	}
}

func TestTryAcquire_DailyWinsOverMinute(t *testing.T) {
	l, _ := newTestLimiter(1, 1)

	if d := l.TryAcquire(); !d.Allowed {
		t.Fatalf("first acquire denied: %q", d.Reason)
	}
	d := l.TryAcquire()
	if d.Allowed || d.Reason != ReasonDailyLimit {
		t.Fatalf("got %+v, want daily denial", d)
	}
}

func TestTryAcquire_DailyWindowExpires(t *testing.T) {
	l, clk := newTestLimiter(10, 3)

	for i := 0; i < 3; i++ {
		l.TryAcquire()
		clk.Advance(2 * time.Minute)
	}
	if d := l.TryAcquire(); d.Allowed || d.Reason != ReasonDailyLimit {
		t.Fatalf("got %+v, want daily denial", d)
	}

	clk.Advance(24 * time.Hour)
	if d := l.TryAcquire(); !d.Allowed {
		t.Fatalf("acquire after 24h denied: %q", d.Reason)
	}
	if got := l.Stats().LastDay; got != 1 {
		t.Fatalf("LastDay = %d, want 1 after prune", got)
	}
}

func TestTryAcquire_DenialsRecordNothing(t *testing.T) {
	l, clk := newTestLimiter(1, 100)

	l.TryAcquire()
	for i := 0; i < 5; i++ {
		if d := l.TryAcquire(); d.Allowed {
			t.Fatal("expected denial")
		}
	}
	if got := l.Stats().LastDay; got != 1 {
		t.Fatalf("LastDay = %d, want 1", got)
	}

	clk.Advance(time.Minute + time.Second)
	if d := l.TryAcquire(); !d.Allowed {
		t.Fatalf("denials must not extend the window: %q", d.Reason)
	}
}

func TestTryAcquire_ZeroLimitsDenyAll(t *testing.T) {
	l, _ := newTestLimiter(0, 0)
	if d := l.TryAcquire(); d.Allowed {
		t.Fatal("zero limits should deny")
	}
}

func TestTryAcquire_Concurrent(t *testing.T) {
	l, _ := newTestLimiter(25, 1000)

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.TryAcquire().Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := allowed.Load(); got != 25 {
		t.Fatalf("allowed = %d, want exactly 25", got)
	}
}

func TestStats(t *testing.T) {
	l, clk := newTestLimiter(5, 50)
	l.TryAcquire()
	clk.Advance(90 * time.Second)
	l.TryAcquire()

	s := l.Stats()
	want := Stats{LastMinute: 1, LastDay: 2, PerMinute: 5, PerDay: 50}
	if s != want {
		t.Fatalf("Stats() = %+v, want %+v", s, want)
	}
}
