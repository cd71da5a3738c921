package server

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func originRequest(origin string) bool {
	r := httptest.NewRequest("GET", "/ws", nil)
	if origin != "" {
		r.Header.Set("Origin", origin)
	}
	return isOriginAllowed(r)
}

func TestOriginAllowList(t *testing.T) {
	req := require.New(t)
	SetConfig(&Config{
		Environment:    "production",
		AllowedOrigins: []string{"https://chat.example.com"},
	})
	t.Cleanup(func() { SetConfig(nil) })

	req.True(originRequest("https://chat.example.com"))
	req.True(originRequest("HTTPS://CHAT.EXAMPLE.COM"))
	req.False(originRequest("https://evil.example.com"))
	req.False(originRequest("http://chat.example.com"))
}

// Non-browser clients send no Origin header and are permitted.
func TestOriginAbsentHeaderAllowed(t *testing.T) {
	SetConfig(&Config{Environment: "production", AllowedOrigins: []string{"https://chat.example.com"}})
	t.Cleanup(func() { SetConfig(nil) })

	require.True(t, originRequest(""))
}

func TestOriginWildcardAllowsAll(t *testing.T) {
	SetConfig(&Config{AllowedOrigins: []string{"*"}})
	t.Cleanup(func() { SetConfig(nil) })

	require.True(t, originRequest("https://anywhere.example.com"))
}

func TestOriginLoopbackOutsideProduction(t *testing.T) {
	req := require.New(t)
	SetConfig(&Config{
		Environment:    "development",
		AllowedOrigins: []string{"https://chat.example.com"},
	})
	t.Cleanup(func() { SetConfig(nil) })

	req.True(originRequest("http://localhost:5173"))
	req.True(originRequest("http://127.0.0.1:3000"))
	req.False(originRequest("http://localhost.evil.example.com"))
}

func TestOriginLoopbackBlockedInProduction(t *testing.T) {
	SetConfig(&Config{
		Environment:    "production",
		AllowedOrigins: []string{"https://chat.example.com"},
	})
	t.Cleanup(func() { SetConfig(nil) })

	require.False(t, originRequest("http://localhost:5173"))
}

func TestNormalizeOrigin(t *testing.T) {
	req := require.New(t)

	normalized, ok := normalizeOrigin("HTTPS://Chat.Example.com")
	req.True(ok)
	req.Equal("https://chat.example.com", normalized)

	_, ok = normalizeOrigin("not a url")
	req.False(ok)

	_, ok = normalizeOrigin("/relative/path")
	req.False(ok)
}
