package handlers

import (
	"sync"
	"time"
)

// CooldownTracker maps arbitrary keys to expiry timestamps. Callers choose
// the key shape ("cmd:user", "whitelist:user", ...); expired entries are
// dropped lazily on read.
type CooldownTracker struct {
	mu    sync.Mutex
	until map[string]time.Time
}

func NewCooldownTracker() *CooldownTracker {
	return &CooldownTracker{until: make(map[string]time.Time)}
}

// Remaining returns how long the key stays on cooldown, or zero when it is
// free.
func (c *CooldownTracker) Remaining(key string, now time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	deadline, ok := c.until[key]
	if !ok {
		return 0
	}
	if !now.Before(deadline) {
		delete(c.until, key)
		return 0
	}
	return deadline.Sub(now)
}

func (c *CooldownTracker) Set(key string, d time.Duration, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.until[key] = now.Add(d)
}

func (c *CooldownTracker) Clear(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.until, key)
}
