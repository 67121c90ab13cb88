package handlers

import (
	"testing"
	"time"
)

func TestCooldownTracker(t *testing.T) {
	c := NewCooldownTracker()
	now := time.Now()

	if got := c.Remaining("k", now); got != 0 {
		t.Fatalf("fresh key on cooldown: %v", got)
	}

	c.Set("k", time.Minute, now)
	if got := c.Remaining("k", now); got != time.Minute {
		t.Fatalf("Remaining = %v, want 1m", got)
	}
	if got := c.Remaining("k", now.Add(30*time.Second)); got != 30*time.Second {
		t.Fatalf("Remaining = %v, want 30s", got)
	}
	if got := c.Remaining("k", now.Add(time.Minute)); got != 0 {
		t.Fatalf("expired key still on cooldown: %v", got)
	}

	// Keys are independent.
	c.Set("a", time.Minute, now)
	c.Set("b", time.Hour, now)
	if c.Remaining("a", now.Add(2*time.Minute)) != 0 {
		t.Fatal("key a should be free")
	}
	if c.Remaining("b", now.Add(2*time.Minute)) == 0 {
		t.Fatal("key b should still be on cooldown")
	}

	c.Clear("b")
	if c.Remaining("b", now) != 0 {
		t.Fatal("cleared key still on cooldown")
	}
}
