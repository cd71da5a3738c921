// Package server defines the sentinel errors for command-level failures.
// Every one of these is terminal for the triggering command only; none of
// them tears down the connection or touches other connections' state.
package server

import "fmt"

var (
	// ErrInvalidInput indicates a required field was empty or missing after
	// normalization (room name, display name, message text).
	ErrInvalidInput = fmt.Errorf("invalid input")

	// ErrRateLimited indicates a message arrived before the per-connection
	// minimum send interval elapsed.
	ErrRateLimited = fmt.Errorf("rate limited")

	// ErrRoomCapacity indicates the global room cap was reached on an attempt
	// to create a new room. Existing rooms are unaffected.
	ErrRoomCapacity = fmt.Errorf("room capacity reached")
)
