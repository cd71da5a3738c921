// Package server implements the core WebSocket relay for RoomRelay: room
// presence tracking, bounded message history, per-connection send throttling,
// and room-scoped event broadcast.
//
// The implementation is organized into specialized files for configuration,
// the hub, presence, the room store, clients, routing, and HTTP handlers to
// keep the codebase maintainable and testable as the project grows.
package server
