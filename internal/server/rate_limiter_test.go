package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestThrottleFixedInterval(t *testing.T) {
	req := require.New(t)
	limiter := newThrottle(500 * time.Millisecond)
	base := time.Now()

	req.True(limiter.allow("conn-1", base))
	req.False(limiter.allow("conn-1", base.Add(499*time.Millisecond)))
	// The rejected send did not move the window.
	req.True(limiter.allow("conn-1", base.Add(500*time.Millisecond)))
	req.False(limiter.allow("conn-1", base.Add(999*time.Millisecond)))
}

func TestThrottleConnectionsAreIndependent(t *testing.T) {
	req := require.New(t)
	limiter := newThrottle(500 * time.Millisecond)
	base := time.Now()

	req.True(limiter.allow("conn-1", base))
	req.True(limiter.allow("conn-2", base))
	req.False(limiter.allow("conn-1", base.Add(time.Millisecond)))
	req.False(limiter.allow("conn-2", base.Add(time.Millisecond)))
}

// forget drops the record, so a reconnecting client starts with a fresh
// window. Accepted behavior: keying on connection identity means a quick
// reconnect resets the throttle.
func TestThrottleForgetResetsWindow(t *testing.T) {
	req := require.New(t)
	limiter := newThrottle(500 * time.Millisecond)
	base := time.Now()

	req.True(limiter.allow("conn-1", base))
	limiter.forget("conn-1")
	req.True(limiter.allow("conn-1", base.Add(time.Millisecond)))
}

func TestThrottleDefaultsInterval(t *testing.T) {
	limiter := newThrottle(0)
	require.Equal(t, 500*time.Millisecond, limiter.interval)
}
