// Package server coordinates client registration, room membership, message
// fan-out, and connection cleanup for the RoomRelay WebSocket system via the
// Hub type.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Hub manages all WebSocket client connections and routes events to the
// correct audience: a single connection, a room, or a room minus the sender.
// It owns the presence tracker, the room store, and the send throttle.
// Every room mutation is serialized with its event fan-out under fanoutMu,
// so members dequeue events in the order the store and presence recorded
// them; fanoutMu is held across channel enqueues only, never across a
// network write, so a slow peer can never stall another peer's state change.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	fanoutMu   sync.Mutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}

	presence *Presence
	store    *RoomStore
	limiter  *throttle

	sweepInterval time.Duration
}

// NewHub creates and initializes a new Hub instance together with the
// presence, history, and throttling state it owns. The returned Hub is ready
// to manage WebSocket connections once Run is started.
func NewHub() *Hub {
	cfg := currentConfig()
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		clients:       make(map[string]*Client),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		ctx:           ctx,
		cancel:        cancel,
		done:          make(chan struct{}),
		presence:      NewPresence(),
		store:         NewRoomStore(cfg.HistoryLimit, cfg.RoomLimit),
		limiter:       newThrottle(cfg.SendInterval),
		sweepInterval: cfg.SweepInterval,
	}
}

// Run starts the hub's main event loop, handling client registration,
// unregistration, and the periodic empty-room sweep. This method should be
// called in a separate goroutine as it runs until Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	sweep := time.NewTicker(h.sweepInterval)
	defer sweep.Stop()

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				log.Printf("Received nil client registration; skipping")
				continue
			}
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case <-sweep.C:
			h.fanoutMu.Lock()
			removed := h.store.Sweep(h.presence.Count)
			h.fanoutMu.Unlock()
			if removed > 0 {
				log.Printf("Sweep removed %d empty rooms", removed)
			}
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mutex.Lock()
	client.closed = false
	h.clients[client.id] = client
	clientCount := len(h.clients)
	h.mutex.Unlock()
	log.Printf("Client %s connected from %s. Total clients: %d", client.id, client.addr, clientCount)

	if client.conn == nil {
		return
	}

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

func (h *Hub) removeClient(client *Client) {
	h.mutex.Lock()
	if _, ok := h.clients[client.id]; ok {
		delete(h.clients, client.id)
		client.closed = true
		clientCount := len(h.clients)
		h.mutex.Unlock()
		// Close the channel after releasing the lock
		close(client.send)
		log.Printf("Client %s disconnected from %s. Total clients: %d", client.id, client.addr, clientCount)
	} else {
		h.mutex.Unlock()
	}

	// Cleanup runs even when the map entry was already gone, so a dropped
	// transport that raced an explicit leave still nets exactly one leave.
	h.limiter.forget(client.id)

	h.fanoutMu.Lock()
	defer h.fanoutMu.Unlock()
	if user, wasMember := h.presence.Disconnect(client.id); wasMember {
		h.notifyLeft(user)
	}
}

// handleCommand decodes an inbound frame and dispatches it to the matching
// operation. Every failure is terminal for this single command only: the
// sender gets an error event and the connection stays up.
func (h *Hub) handleCommand(client *Client, raw []byte) {
	envelope, err := decodeCommand(raw)
	if err != nil {
		log.Printf("Invalid command from %s: %v", client.addr, err)
		h.sendError(client, "invalid message format")
		return
	}

	switch envelope.Type {
	case cmdJoinRoom:
		payload, err := decodeJoin(raw)
		if err != nil {
			h.sendError(client, "username and room are required")
			return
		}
		h.joinRoom(client, payload)

	case cmdSendMessage:
		payload, err := decodeSend(raw)
		if err != nil {
			h.sendError(client, "message text, username and room are required")
			return
		}
		h.sendMessage(client, payload)

	case cmdLeaveRoom:
		h.leaveRoom(client)

	default:
		h.sendError(client, fmt.Sprintf("unknown command %q", envelope.Type))
	}
}

// joinRoom makes the client a member of the requested room. A client already
// in another room migrates: the old room sees a userLeft and a fresh
// snapshot before the new room learns about the join. The joiner alone
// receives the room's retained history.
func (h *Hub) joinRoom(client *Client, payload joinPayload) {
	room := normalizeRoom(payload.Room)
	if room == "" || strings.TrimSpace(payload.Username) == "" {
		h.sendError(client, "username and room are required")
		return
	}

	// Under fanoutMu the history snapshot sent to the joiner cannot
	// interleave with a concurrent append, so no message arrives both in
	// roomMessages and live.
	h.fanoutMu.Lock()
	defer h.fanoutMu.Unlock()

	if err := h.store.Ensure(room); err != nil {
		log.Printf("Join to room %q from %s rejected: %v", room, client.addr, err)
		h.sendError(client, "room limit reached; join an existing room instead")
		return
	}

	user, departure, err := h.presence.Join(client.id, payload.Username, payload.Room, payload.UID)
	if err != nil {
		h.sendError(client, "username and room are required")
		return
	}

	if departure != nil {
		h.sendToMembers(departure.Remaining, "", eventUserLeft, departure.User)
		h.sendToMembers(departure.Remaining, "", eventRoomUsers, departure.Remaining)
	}

	h.sendToConnection(client.id, eventRoomMessages, h.store.History(room))

	members := h.presence.MembersOf(room)
	h.sendToMembers(members, client.id, eventUserJoined, user)
	h.sendToMembers(members, "", eventRoomUsers, members)

	log.Printf("Client %s joined room %q as %q (%d members)", client.id, room, user.Username, len(members))
}

// sendMessage appends a message to the room's history and fans it out to the
// whole room, throttled per connection.
func (h *Hub) sendMessage(client *Client, payload sendPayload) {
	room := normalizeRoom(payload.Room)
	username := strings.TrimSpace(payload.Username)
	text := strings.TrimSpace(payload.Text)
	if room == "" || username == "" || text == "" {
		h.sendError(client, "message text, username and room are required")
		return
	}

	if !h.limiter.allow(client.id, time.Now()) {
		log.Printf("Send from %s rejected: %v", client.addr, ErrRateLimited)
		h.sendError(client, "you are sending messages too quickly")
		return
	}

	// Append and fan-out happen under fanoutMu so members dequeue messages
	// in history append order even when senders race.
	h.fanoutMu.Lock()
	defer h.fanoutMu.Unlock()

	msg := Message{
		ID:        uuid.NewString(),
		Text:      payload.Text,
		Username:  username,
		Room:      room,
		Timestamp: time.Now().UTC(),
		UID:       payload.UID,
	}

	if err := h.store.Append(room, msg); err != nil {
		if errors.Is(err, ErrRoomCapacity) {
			h.sendError(client, "room limit reached; send to an existing room instead")
			return
		}
		log.Printf("Failed to store message from %s: %v", client.addr, err)
		h.sendError(client, "failed to send message")
		return
	}

	h.sendToMembers(h.presence.MembersOf(room), "", eventMessage, msg)
}

// leaveRoom removes the client's membership, if any, and notifies the room
// it left behind.
func (h *Hub) leaveRoom(client *Client) {
	h.fanoutMu.Lock()
	defer h.fanoutMu.Unlock()

	user, wasMember := h.presence.Leave(client.id)
	if !wasMember {
		return
	}

	log.Printf("Client %s left room %q", client.id, user.Room)
	h.notifyLeft(user)
}

// notifyLeft tells the departed user's former room about the departure:
// userLeft first, then the updated membership snapshot.
func (h *Hub) notifyLeft(user User) {
	remaining := h.presence.MembersOf(user.Room)
	h.sendToMembers(remaining, "", eventUserLeft, user)
	h.sendToMembers(remaining, "", eventRoomUsers, remaining)
}

func (h *Hub) sendError(client *Client, message string) {
	data, err := encodeEvent(eventError, message)
	if err != nil {
		log.Printf("Error encoding error event: %v", err)
		return
	}
	if !h.safeSend(client, data) {
		log.Printf("Dropped error event for %s", client.addr)
	}
}

// sendToConnection delivers an event to a single connection, if it is still
// registered.
func (h *Hub) sendToConnection(connID string, eventType string, payload any) {
	data, err := encodeEvent(eventType, payload)
	if err != nil {
		log.Printf("Error encoding %s event: %v", eventType, err)
		return
	}

	h.mutex.RLock()
	client := h.clients[connID]
	h.mutex.RUnlock()
	if client == nil {
		return
	}

	h.deliver([]*Client{client}, data)
}

// sendToMembers delivers an event to the connections behind a membership
// snapshot, optionally excluding one connection. Delivery is best-effort per
// connection: one unreachable peer never aborts delivery to the rest.
func (h *Hub) sendToMembers(members []User, exceptConnID string, eventType string, payload any) {
	data, err := encodeEvent(eventType, payload)
	if err != nil {
		log.Printf("Error encoding %s event: %v", eventType, err)
		return
	}

	h.mutex.RLock()
	targets := make([]*Client, 0, len(members))
	for _, member := range members {
		if member.ID == exceptConnID {
			continue
		}
		if client, ok := h.clients[member.ID]; ok {
			targets = append(targets, client)
		}
	}
	h.mutex.RUnlock()

	h.deliver(targets, data)
}

func (h *Hub) deliver(targets []*Client, data []byte) {
	var clientsToRemove []*Client
	for _, client := range targets {
		if !h.safeSend(client, data) {
			clientsToRemove = append(clientsToRemove, client)
		}
	}
	h.removeFailedClients(clientsToRemove)
}

func (h *Hub) safeSend(client *Client, message []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in safeSend: %v", r)
		}
	}()

	// Hold the lock during the entire send operation to prevent race conditions
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	// Check if client is still registered and not closed
	current, exists := h.clients[client.id]
	if !exists || current != client || client.closed {
		return false
	}

	// Try to send the message (channel might be closed, so we need to recover from panic)
	select {
	case client.send <- message:
		return true
	default:
		return false
	}
}

// removeFailedClients drops clients whose send buffers are full and closes
// their channels. Their pumps then exit and funnel through the unregister
// path, which handles the presence-side leave.
func (h *Hub) removeFailedClients(clientsToRemove []*Client) {
	if len(clientsToRemove) == 0 {
		return
	}

	h.mutex.Lock()
	var channelsToClose []chan []byte
	for _, client := range clientsToRemove {
		if _, exists := h.clients[client.id]; exists {
			delete(h.clients, client.id)
			client.closed = true
			channelsToClose = append(channelsToClose, client.send)
			log.Printf("Client %s removed due to full send buffer", client.id)
		}
	}
	h.mutex.Unlock()

	// Close channels after releasing the lock
	for _, ch := range channelsToClose {
		close(ch)
	}
}

// shutdownClients gracefully closes all active client connections
func (h *Hub) shutdownClients() {
	log.Println("Shutting down all client connections...")

	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.Unlock()

	for _, client := range clients {
		if client.conn != nil {
			if err := client.conn.Close(); err != nil {
				if !isExpectedCloseError(err) {
					log.Printf("Error closing client connection from %s: %v", client.addr, err)
				}
			}
		}
	}

	log.Printf("Closed %d client connections", len(clients))
}

// Shutdown initiates graceful shutdown of the hub and waits for all goroutines
// to complete. It returns after all client connections are closed and
// goroutines have finished, or when the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	log.Println("Initiating hub shutdown...")

	h.cancel()

	// Wait for Run() to complete
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		log.Println("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
