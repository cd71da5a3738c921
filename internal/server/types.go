// Package server defines the wire types shared between the hub, clients, and
// the room store.
package server

import (
	"strings"
	"time"
)

// Message is an immutable chat message as stored in a room's history and
// delivered to clients. The ID is generated server-side; Timestamp is
// server-assigned and non-decreasing within a room.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Username  string    `json:"username"`
	Room      string    `json:"room"`
	Timestamp time.Time `json:"timestamp"`
	UID       string    `json:"uid,omitempty"`
}

// User is the presence-visible projection of a connection joined to a room.
// ID is the transport-assigned connection identifier and changes on every
// reconnect; UID is the client-assigned identity that survives reconnects.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Room     string `json:"room"`
	UID      string `json:"uid,omitempty"`
}

// normalizeRoom trims surrounding whitespace and case-folds a room name so
// that "Lobby" and " lobby " address the same broadcast domain.
func normalizeRoom(room string) string {
	return strings.ToLower(strings.TrimSpace(room))
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
