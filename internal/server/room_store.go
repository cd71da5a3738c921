// Package server retains per-room message history with bounded memory via the
// RoomStore type.
package server

import "sync"

// RoomStore owns the lifetime of rooms and their retained messages. Rooms are
// created lazily on first append and hold at most historyLimit messages in
// FIFO order; at most roomLimit rooms exist at once. All state is in-memory
// and lost on restart.
type RoomStore struct {
	mu           sync.Mutex
	rooms        map[string][]Message
	historyLimit int
	roomLimit    int
}

// NewRoomStore creates an empty RoomStore with the given retention limits.
func NewRoomStore(historyLimit, roomLimit int) *RoomStore {
	if historyLimit <= 0 {
		historyLimit = 1
	}
	if roomLimit <= 0 {
		roomLimit = 1
	}

	return &RoomStore{
		rooms:        make(map[string][]Message),
		historyLimit: historyLimit,
		roomLimit:    roomLimit,
	}
}

// Ensure creates the room with an empty history if it does not exist yet.
// It returns ErrRoomCapacity when the room would be new but the global room
// cap is already reached; existing rooms are never affected.
func (s *RoomStore) Ensure(room string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rooms[room]; exists {
		return nil
	}
	if len(s.rooms) >= s.roomLimit {
		return ErrRoomCapacity
	}

	s.rooms[room] = nil
	return nil
}

// Append stores a message in the room's history, creating the room if absent.
// It returns ErrRoomCapacity when room creation is required but the global
// room cap is already reached. Messages past the history limit are evicted
// oldest-first. Timestamps are clamped so that history order is always
// non-decreasing even when callers raced on building the message.
func (s *RoomStore) Append(room string, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, exists := s.rooms[room]
	if !exists && len(s.rooms) >= s.roomLimit {
		return ErrRoomCapacity
	}

	if n := len(history); n > 0 && msg.Timestamp.Before(history[n-1].Timestamp) {
		msg.Timestamp = history[n-1].Timestamp
	}

	history = append(history, msg)
	if len(history) > s.historyLimit {
		history = history[len(history)-s.historyLimit:]
	}
	s.rooms[room] = history

	return nil
}

// History returns a copy of the retained messages for a room in chronological
// order, or an empty slice if the room does not exist.
func (s *RoomStore) History(room string) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.rooms[room]
	copied := make([]Message, len(history))
	copy(copied, history)
	return copied
}

// RoomCount returns the number of rooms currently held.
func (s *RoomStore) RoomCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.rooms)
}

// Sweep removes every room that has no retained messages and no members
// according to the provided membership counter. It returns the number of
// rooms removed. Rooms with history but no members survive, so a briefly
// empty room keeps its messages for the next joiner.
func (s *RoomStore) Sweep(members func(room string) int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for room, history := range s.rooms {
		if len(history) == 0 && members(room) == 0 {
			delete(s.rooms, room)
			removed++
		}
	}
	return removed
}
