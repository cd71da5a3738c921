// Package server implements a fixed-interval send throttle, keyed by
// connection identifier, that protects the hub from abuse.
package server

import (
	"sync"
	"time"
)

// throttle allows one send per connection per interval. It is deliberately
// coarse: no token accumulation, no sliding window, just a per-connection
// last-send timestamp that must be at least interval in the past. Records
// are keyed by connection identifier, so a reconnecting client starts with
// a fresh window.
type throttle struct {
	mu       sync.Mutex
	interval time.Duration
	lastSend map[string]time.Time
}

func newThrottle(interval time.Duration) *throttle {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	return &throttle{
		interval: interval,
		lastSend: make(map[string]time.Time),
	}
}

// allow reports whether the connection may send at the given instant. On
// allow, the stored timestamp advances to now; on reject it is left alone,
// so a rejected send carries no penalty beyond the remaining delay.
func (t *throttle) allow(connID string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	last, seen := t.lastSend[connID]
	if seen && now.Sub(last) < t.interval {
		return false
	}

	t.lastSend[connID] = now
	return true
}

// forget drops the record for a connection so closed connections do not
// accumulate in the map.
func (t *throttle) forget(connID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.lastSend, connID)
}
