package limiter

import (
	"context"
	"testing"
	"time"
)

func TestWindow_DropsBurst(t *testing.T) {
	w := NewWindow(time.Hour)

	if !w.Allow() {
		t.Fatal("first event should pass")
	}
	for i := 0; i < 10; i++ {
		if w.Allow() {
			t.Fatalf("event %d inside the window should be dropped", i)
		}
	}
}

func TestWindow_OpensAfterInterval(t *testing.T) {
	w := NewWindow(20 * time.Millisecond)

	if !w.Allow() {
		t.Fatal("first event should pass")
	}
	time.Sleep(40 * time.Millisecond)
	if !w.Allow() {
		t.Fatal("event after the interval should pass")
	}
}

func TestWindow_ZeroIntervalNeverThrottles(t *testing.T) {
	w := NewWindow(0)
	for i := 0; i < 5; i++ {
		if !w.Allow() {
			t.Fatal("zero interval should admit everything")
		}
	}
}

func TestPerHost_TakeHonorsContext(t *testing.T) {
	l := New(1, 1)
	ctx := context.Background()
	if err := l.Take(ctx, "https://example.com/a"); err != nil {
		t.Fatalf("first take: %v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	if err := l.Take(ctx, "https://example.com/b"); err == nil {
		t.Fatal("expected second take to wait past the deadline")
	}
}
