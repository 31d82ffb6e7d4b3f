package infra

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeClock is a settable time source.
type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
}

// ── Cache ──

func TestCacheGetSet(t *testing.T) {
	c := NewCache[[]byte](time.Minute, 0)
	if _, ok := c.Get("a"); ok {
		t.Fatal("empty cache returned a value")
	}
	c.Set("a", []byte("png"))
	v, ok := c.Get("a")
	if !ok || string(v) != "png" {
		t.Fatalf("Get = %q, %v", v, ok)
	}
}

func TestCacheExpiry(t *testing.T) {
	clk := newFakeClock()
	c := NewCache[int](time.Minute, 0)
	c.now = clk.now

	c.Set("k", 1)
	clk.advance(59 * time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("entry expired early")
	}
	clk.advance(time.Second)
	if _, ok := c.Get("k"); ok {
		t.Fatal("entry should have expired")
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, expired entry not removed", c.Len())
	}
}

func TestCacheBound(t *testing.T) {
	clk := newFakeClock()
	c := NewCache[int](time.Hour, 2)
	c.now = clk.now

	c.Set("first", 1)
	clk.advance(time.Second)
	c.Set("second", 2)
	clk.advance(time.Second)
	c.Set("third", 3)

	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
	if _, ok := c.Get("first"); ok {
		t.Error("oldest entry should have been evicted")
	}
	if _, ok := c.Get("third"); !ok {
		t.Error("newest entry missing")
	}

	// overwriting an existing key does not evict
	c.Set("third", 33)
	if _, ok := c.Get("second"); !ok {
		t.Error("overwrite evicted another entry")
	}
}

func TestCacheFlush(t *testing.T) {
	c := NewCache[string](time.Hour, 0)
	c.Set("a", "x")
	c.Set("b", "y")
	c.Flush()
	if c.Len() != 0 {
		t.Errorf("Len after Flush = %d", c.Len())
	}
}

// ── RateLimiter ──

func TestRateLimiterAllow(t *testing.T) {
	clk := newFakeClock()
	rl := NewRateLimiter(2, time.Second)
	rl.now = clk.now
	rl.lastRefill = clk.t

	if !rl.Allow() || !rl.Allow() {
		t.Fatal("burst of 2 should be allowed")
	}
	if rl.Allow() {
		t.Fatal("third request should be refused")
	}

	clk.advance(time.Second)
	if !rl.Allow() {
		t.Fatal("token should refill after one interval")
	}
	if rl.Allow() {
		t.Fatal("only one token should have refilled")
	}

	clk.advance(10 * time.Second)
	if !rl.Allow() || !rl.Allow() || rl.Allow() {
		t.Fatal("refill must be capped at burst")
	}
}

func TestRateLimiterMinimumBurst(t *testing.T) {
	rl := NewRateLimiter(0, time.Hour)
	if !rl.Allow() {
		t.Fatal("burst is at least one")
	}
}

func TestRateLimiterNoInterval(t *testing.T) {
	rl := NewRateLimiter(1, 0)
	for i := 0; i < 5; i++ {
		if !rl.Allow() {
			t.Fatalf("request %d refused with zero interval", i)
		}
	}
}

func TestRateLimiterWaitCancelled(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	rl.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait = %v, want deadline exceeded", err)
	}
}

func TestRateLimiterWaitRefill(t *testing.T) {
	rl := NewRateLimiter(1, 10*time.Millisecond)
	rl.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := rl.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}
