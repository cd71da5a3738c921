// Package server exposes HTTP handlers, including WebSocket upgrades and
// health checks.
package server

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

// Gateway accepts transport-level connections and hands them off to the hub.
// It is the only component that touches raw HTTP requests.
type Gateway struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewGateway creates a Gateway bound to the given hub.
func NewGateway(hub *Hub) *Gateway {
	return &Gateway{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// WebSocketHandler handles WebSocket upgrade requests and manages client
// connections. It validates that the request uses the GET method, upgrades
// the HTTP connection to WebSocket, creates a new Client instance, and
// registers it with the hub, which launches the read/write pumps.
func (g *Gateway) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := NewClient(conn, g.hub, r.RemoteAddr)
	g.hub.register <- client
}

// HealthHandler provides a simple health check endpoint that returns server status.
// It responds with a plain text message indicating the server is running.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "RoomRelay server is running!")
}
