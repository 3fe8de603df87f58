package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestNewLimiter(t *testing.T) {
	l := NewLimiter(10.0, 5)

	if l == nil {
		t.Fatal("NewLimiter() returned nil")
	}
	stats := l.Stats()
	if stats.Rate != 10.0 {
		t.Errorf("Rate = %v, want 10.0", stats.Rate)
	}
	if stats.Burst != 5 {
		t.Errorf("Burst = %d, want 5", stats.Burst)
	}
}

func TestNewLimiter_Unlimited(t *testing.T) {
	l := NewLimiter(0, 0)

	for i := 0; i < 100; i++ {
		if !l.Allow() {
			t.Fatalf("Allow() should always pass when pacing is disabled (request %d)", i)
		}
	}
}

func TestLimiter_Allow_Burst(t *testing.T) {
	l := NewLimiter(1, 3)

	for i := 0; i < 3; i++ {
		if !l.Allow() {
			t.Errorf("Allow() should return true for burst request %d", i+1)
		}
	}
	if l.Allow() {
		t.Error("Allow() should return false after burst exhausted")
	}
}

func TestLimiter_Wait_ContextCancelled(t *testing.T) {
	l := NewLimiter(0.1, 1)
	l.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := l.Wait(ctx); err == nil {
		t.Error("Wait() should fail when the context expires first")
	}
}

func TestLimiter_WaitEndpoint(t *testing.T) {
	l := NewLimiter(1000, 10)
	ctx := context.Background()

	for _, ep := range []string{"/ocr", "/slide_match", "/ocr"} {
		if err := l.WaitEndpoint(ctx, ep); err != nil {
			t.Errorf("WaitEndpoint(%s) error = %v", ep, err)
		}
	}

	if got := l.Stats().EndpointCount; got != 2 {
		t.Errorf("EndpointCount = %d, want 2", got)
	}
}

func TestLimiter_SetRate(t *testing.T) {
	l := NewLimiter(10, 5)
	l.SetRate(20, 8)

	stats := l.Stats()
	if stats.Rate != 20 || stats.Burst != 8 {
		t.Errorf("Stats() = %+v, want rate 20 burst 8", stats)
	}
}

func TestLimiter_Concurrent(t *testing.T) {
	l := NewLimiter(10000, 100)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.WaitEndpoint(ctx, "/ocr")
		}()
	}
	wg.Wait()
}

func TestAdaptive_SlowDown(t *testing.T) {
	a := NewAdaptive(1, 8, 1, 10)

	for i := 0; i < 10; i++ {
		a.RecordError()
	}

	if got := a.CurrentRate(); got != 4 {
		t.Errorf("CurrentRate() = %v, want 4", got)
	}
}

func TestAdaptive_MinRate(t *testing.T) {
	a := NewAdaptive(3, 8, 1, 2)

	for i := 0; i < 20; i++ {
		a.RecordError()
	}

	if got := a.CurrentRate(); got != 3 {
		t.Errorf("CurrentRate() = %v, want min 3", got)
	}
}

func TestAdaptive_Recover(t *testing.T) {
	a := NewAdaptive(1, 8, 1, 4)

	for i := 0; i < 4; i++ {
		a.RecordError()
	}
	slowed := a.CurrentRate()

	for i := 0; i < 40; i++ {
		a.RecordSuccess()
	}

	if got := a.CurrentRate(); got <= slowed || got > 8 {
		t.Errorf("CurrentRate() = %v, want between %v and 8", got, slowed)
	}
}

func TestAdaptive_BelowWindow(t *testing.T) {
	a := NewAdaptive(1, 8, 1, 100)

	for i := 0; i < 50; i++ {
		a.RecordError()
	}

	if got := a.CurrentRate(); got != 8 {
		t.Errorf("CurrentRate() = %v, want unchanged 8", got)
	}
}
