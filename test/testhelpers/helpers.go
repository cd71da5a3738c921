// Package testhelpers provides common utilities and helper functions for
// testing the RoomRelay server.
//
// This package contains reusable test utilities that are shared across the
// integration tests: dialing WebSocket connections, sending typed commands,
// and reading typed events off the wire.
package testhelpers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// Event mirrors the server's outbound envelope with the payload left raw so
// callers can decode it into the expected shape.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// MakeRequest creates and executes an HTTP request, returning the response.
// It includes a 5-second timeout and fails the test if the request cannot be
// created or executed successfully.
func MakeRequest(t *testing.T, method, url string) *http.Response {
	t.Helper()

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(method, url, http.NoBody)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}

	return resp
}

// AssertStatusCode checks if the HTTP response has the expected status code.
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d", expected, resp.StatusCode)
	}
}

// DialWebSocket opens a WebSocket connection to the given URL with the given
// Origin header. An empty origin sends no Origin header, mimicking a
// non-browser client.
func DialWebSocket(t *testing.T, wsURL, origin string) *websocket.Conn {
	t.Helper()

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}

	conn, resp, err := dialer.Dial(wsURL, header)
	if resp != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("Failed to dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// JoinRoom sends a joinRoom command over the connection.
func JoinRoom(t *testing.T, conn *websocket.Conn, username, room, uid string) {
	t.Helper()
	writeCommand(t, conn, map[string]string{
		"type":     "joinRoom",
		"username": username,
		"room":     room,
		"uid":      uid,
	})
}

// SendChat sends a sendMessage command over the connection.
func SendChat(t *testing.T, conn *websocket.Conn, text, username, room, uid string) {
	t.Helper()
	writeCommand(t, conn, map[string]string{
		"type":     "sendMessage",
		"text":     text,
		"username": username,
		"room":     room,
		"uid":      uid,
	})
}

// LeaveRoom sends a leaveRoom command over the connection.
func LeaveRoom(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	writeCommand(t, conn, map[string]string{"type": "leaveRoom"})
}

func writeCommand(t *testing.T, conn *websocket.Conn, command map[string]string) {
	t.Helper()
	if err := conn.WriteJSON(command); err != nil {
		t.Fatalf("Failed to write %s command: %v", command["type"], err)
	}
}

// ReadEvent reads the next event frame from the connection, failing the test
// if nothing arrives within the timeout.
func ReadEvent(t *testing.T, conn *websocket.Conn, timeout time.Duration) Event {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}

	var event Event
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("Failed to read event: %v", err)
	}
	return event
}

// ExpectEvent reads the next event and fails the test unless it has the
// expected type.
func ExpectEvent(t *testing.T, conn *websocket.Conn, eventType string) Event {
	t.Helper()

	event := ReadEvent(t, conn, 2*time.Second)
	if event.Type != eventType {
		t.Fatalf("Expected %q event, got %q (payload %s)", eventType, event.Type, event.Payload)
	}
	return event
}

// ExpectNoEvent asserts that no event arrives on the connection within the
// given window.
func ExpectNoEvent(t *testing.T, conn *websocket.Conn, window time.Duration) {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(window)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	var event Event
	if err := conn.ReadJSON(&event); err == nil {
		t.Fatalf("Expected no event, but received %q", event.Type)
	}
}

// DecodePayload decodes an event payload into out.
func DecodePayload(t *testing.T, event Event, out any) {
	t.Helper()
	if err := json.Unmarshal(event.Payload, out); err != nil {
		t.Fatalf("Failed to decode %s payload: %v", event.Type, err)
	}
}
