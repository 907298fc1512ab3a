package app

import (
	"context"
	"testing"
	"time"
)

func TestBackoff_NextDoublesWithJitter(t *testing.T) {
	b := NewBackoff(100*time.Millisecond, time.Second)

	bases := []time.Duration{100, 200, 400, 800, 1000, 1000}
	for i, base := range bases {
		base *= time.Millisecond
		d := b.Next()
		lo := time.Duration(float64(base) * 0.8)
		hi := time.Duration(float64(base) * 1.2)
		if d < lo || d > hi {
			t.Errorf("attempt %d: Next() = %v, want within [%v, %v]", i, d, lo, hi)
		}
	}
	if b.Current() != time.Second {
		t.Errorf("Current() = %v, want capped at %v", b.Current(), time.Second)
	}
}

func TestBackoff_Reset(t *testing.T) {
	b := NewBackoff(50*time.Millisecond, time.Second)
	b.Next()
	b.Next()

	b.Reset()
	if b.Current() != 50*time.Millisecond {
		t.Errorf("Current() after Reset = %v, want 50ms", b.Current())
	}
}

func TestBackoff_WaitHonorsContext(t *testing.T) {
	b := NewBackoff(time.Hour, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if err := b.Wait(ctx); err != context.Canceled {
		t.Errorf("Wait() = %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Wait() did not return promptly on canceled context")
	}
}

func TestBackoff_WaitElapses(t *testing.T) {
	b := NewBackoff(5*time.Millisecond, 10*time.Millisecond)
	if err := b.Wait(context.Background()); err != nil {
		t.Errorf("Wait() = %v, want nil", err)
	}
}
