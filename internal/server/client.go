// Package server manages individual WebSocket clients, handling read/write
// pumps and lifecycle control for each connection.
package server

import (
	"errors"
	"io"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// pongWait is how long a connection may stay silent before the read
	// side gives up on it; pings go out well inside that window.
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second
	writeWait    = 10 * time.Second
)

// Client represents one live WebSocket connection. The id is assigned at
// upgrade time and is unique per physical connection; it is the key under
// which presence and throttling state is tracked. Identity that survives
// reconnects travels in command payloads as the uid, never here.
type Client struct {
	id             string
	conn           *websocket.Conn
	send           chan []byte
	hub            *Hub
	addr           string
	closed         bool
	maxMessageSize int64
}

// NewClient creates a new Client instance with the provided WebSocket
// connection, hub reference, and client address. The client's send channel is
// buffered to handle message queuing.
func NewClient(conn *websocket.Conn, hub *Hub, addr string) *Client {
	cfg := currentConfig()
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	return &Client{
		id:             uuid.NewString(),
		conn:           conn,
		send:           make(chan []byte, 256),
		hub:            hub,
		addr:           addr,
		closed:         false,
		maxMessageSize: cfg.MaxMessageSize,
	}
}

// ID returns the transport-assigned connection identifier.
func (c *Client) ID() string {
	return c.id
}

// GetSendChan returns the client's send channel for reading outgoing messages.
// This channel is read-only from the caller's perspective.
func (c *Client) GetSendChan() <-chan []byte {
	return c.send
}

func (c *Client) closeConn(where string) {
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		log.Printf("Closing connection for %s in %s: %v", c.addr, where, err)
	}
}

// readPump drains inbound frames and hands each one to the hub. It exits on
// the first read error; every exit path funnels through the unregister
// channel so the hub-side cleanup runs exactly once.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.closeConn("readPump")
	}()

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Printf("Setting read deadline for %s: %v", c.addr, err)
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadEnd(err)
			return
		}
		c.hub.handleCommand(c, raw)
	}
}

// logReadEnd records why the read loop terminated, distinguishing the
// oversized-frame case and routine disconnects from genuine failures.
func (c *Client) logReadEnd(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		log.Printf("Dropping %s: frame exceeded limit of %d bytes", c.addr, c.maxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		log.Printf("Client %s disconnected: %v", c.addr, err)
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		log.Printf("Client %s connection closed: %v", c.addr, err)
	default:
		log.Printf("Read error from %s: %v", c.addr, err)
	}
}

// writePump serializes all writes to the connection: queued events from the
// send channel and the keepalive pings. A closed send channel means the hub
// deregistered the client, so the pump says goodbye and stops.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.closeConn("writePump")
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Printf("Setting write deadline for %s: %v", c.addr, err)
				return
			}
			if !ok {
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil && !isExpectedCloseError(err) {
					log.Printf("Writing close frame to %s: %v", c.addr, err)
				}
				return
			}
			// Exactly one JSON event envelope per frame; events are never
			// coalesced, so clients can decode frame by frame.
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("Write to %s failed: %v", c.addr, err)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
