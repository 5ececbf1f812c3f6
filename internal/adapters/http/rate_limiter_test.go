package http

import (
	"testing"
	"time"
)

func TestRateLimiter_SlidingWindow(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	if !rl.Allow("p1") || !rl.Allow("p1") {
		t.Fatal("first two calls should pass")
	}
	if rl.Allow("p1") {
		t.Fatal("third call inside the window should be rejected")
	}
	if !rl.Allow("p2") {
		t.Fatal("limits are per player")
	}

	now = now.Add(61 * time.Second)
	if !rl.Allow("p1") {
		t.Fatal("window should have slid")
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	rl := NewRateLimiter(0, time.Minute)
	for i := 0; i < 10; i++ {
		if !rl.Allow("p1") {
			t.Fatal("zero limit disables limiting")
		}
	}
}
