// Package server tracks which connection is a member of which room via the
// Presence type.
package server

import (
	"strings"
	"sync"

	"github.com/samber/lo"
)

// Departure describes the membership a connection gave up when it joined a
// different room: the removed User record and the old room's membership
// snapshot after the removal, for notifying the members left behind.
type Departure struct {
	User      User
	Remaining []User
}

// Presence owns the User records of joined connections. A connection has at
// most one User record at any time; joining a new room atomically replaces
// the previous membership. Records are keyed by connection identifier, and a
// separate insertion-ordered index keeps membership snapshots stable between
// updates.
type Presence struct {
	mu     sync.Mutex
	byConn map[string]User
	order  []string
}

// NewPresence creates an empty Presence tracker.
func NewPresence() *Presence {
	return &Presence{
		byConn: make(map[string]User),
	}
}

// Join records the connection as a member of the given room, normalizing the
// room name (trim + case-fold) and display name (trim) first. It returns
// ErrInvalidInput if either is empty after normalization. When the connection
// was already a member of a different room, that membership is removed in the
// same critical section and reported as a Departure so callers can emit the
// implicit leave events; there is no intermediate state where the connection
// belongs to two rooms or to none.
func (p *Presence) Join(connID, username, room, uid string) (User, *Departure, error) {
	normalizedRoom := normalizeRoom(room)
	trimmedName := strings.TrimSpace(username)
	if normalizedRoom == "" || trimmedName == "" {
		return User{}, nil, ErrInvalidInput
	}

	user := User{
		ID:       connID,
		Username: trimmedName,
		Room:     normalizedRoom,
		UID:      uid,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	previous, wasMember := p.byConn[connID]
	if wasMember && previous.Room == normalizedRoom {
		// Rejoining the same room just refreshes the record in place.
		p.byConn[connID] = user
		return user, nil, nil
	}

	var departure *Departure
	if wasMember {
		p.removeLocked(connID)
		departure = &Departure{
			User:      previous,
			Remaining: p.membersLocked(previous.Room),
		}
	}

	p.byConn[connID] = user
	p.order = append(p.order, connID)
	return user, departure, nil
}

// Leave removes the connection's User record if present. It reports false
// when the connection was not a member; calling Leave twice, or Leave and
// Disconnect in either order, nets a single removal.
func (p *Presence) Leave(connID string) (User, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	user, wasMember := p.byConn[connID]
	if !wasMember {
		return User{}, false
	}

	p.removeLocked(connID)
	return user, true
}

// Disconnect is the transport-drop counterpart of Leave and shares its
// idempotence.
func (p *Presence) Disconnect(connID string) (User, bool) {
	return p.Leave(connID)
}

// MembersOf returns the current membership snapshot for a room in join order.
func (p *Presence) MembersOf(room string) []User {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.membersLocked(room)
}

// Count returns the number of connections currently joined to a room.
func (p *Presence) Count(room string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	count := 0
	for _, user := range p.byConn {
		if user.Room == room {
			count++
		}
	}
	return count
}

func (p *Presence) membersLocked(room string) []User {
	return lo.FilterMap(p.order, func(connID string, _ int) (User, bool) {
		user, ok := p.byConn[connID]
		return user, ok && user.Room == room
	})
}

func (p *Presence) removeLocked(connID string) {
	delete(p.byConn, connID)
	p.order = lo.Without(p.order, connID)
}
