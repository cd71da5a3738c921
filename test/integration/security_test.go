// Package integration contains security-focused integration tests.
//
// These tests verify that the security constraints are properly enforced,
// including origin validation and the payload size limit.
package integration

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"roomrelay/internal/server"
	"roomrelay/test/testhelpers"
)

func dialExpectingRejection(t *testing.T, wsURL, origin string) {
	t.Helper()

	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err == nil {
		_ = conn.Close()
		t.Fatalf("Expected connection with origin %q to be rejected", origin)
	}
	if resp != nil {
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("Expected status %d, got %d", http.StatusForbidden, resp.StatusCode)
		}
	}
}

// TestOriginValidation exercises the allow-list and its two carve-outs: the
// missing-header case for non-browser clients and the loopback family
// outside production.
func TestOriginValidation(t *testing.T) {
	testServer, wsURL, _ := startRelay(t, func(cfg *server.Config) {
		cfg.Environment = "production"
	})

	t.Run("Allowed origin connects", func(t *testing.T) {
		conn := testhelpers.DialWebSocket(t, wsURL, testServer.URL)
		_ = conn.Close()
	})

	t.Run("Missing Origin header is permitted", func(t *testing.T) {
		conn := testhelpers.DialWebSocket(t, wsURL, "")
		_ = conn.Close()
	})

	t.Run("Disallowed origin is rejected", func(t *testing.T) {
		dialExpectingRejection(t, wsURL, "https://evil.example.com")
	})

	t.Run("Loopback origin is rejected in production", func(t *testing.T) {
		dialExpectingRejection(t, wsURL, "http://localhost:4444")
	})
}

// TestOriginLoopbackInDevelopment verifies a dev frontend on an arbitrary
// localhost port can connect without being on the allow-list.
func TestOriginLoopbackInDevelopment(t *testing.T) {
	_, wsURL, _ := startRelay(t, func(cfg *server.Config) {
		cfg.Environment = "development"
	})

	conn := testhelpers.DialWebSocket(t, wsURL, "http://localhost:4444")
	_ = conn.Close()
}

// TestMessageSizeLimit verifies a frame above the configured cap terminates
// the connection instead of being processed.
func TestMessageSizeLimit(t *testing.T) {
	testServer, wsURL, _ := startRelay(t, func(cfg *server.Config) {
		cfg.MaxMessageSize = 256
	})

	conn := testhelpers.DialWebSocket(t, wsURL, testServer.URL)

	oversized := `{"type":"sendMessage","text":"` + strings.Repeat("a", 1024) + `","username":"alice","room":"lobby"}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(oversized)); err != nil {
		t.Fatalf("Failed to write oversized frame: %v", err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("Expected the connection to be closed after an oversized frame")
	}
}
