package server

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func storeMessage(room, text string, at time.Time) Message {
	return Message{
		ID:        text,
		Text:      text,
		Username:  "alice",
		Room:      room,
		Timestamp: at,
	}
}

func TestRoomStoreAppendAndHistory(t *testing.T) {
	req := require.New(t)
	store := NewRoomStore(100, 50)

	base := time.Now().UTC()
	req.NoError(store.Append("lobby", storeMessage("lobby", "first", base)))
	req.NoError(store.Append("lobby", storeMessage("lobby", "second", base.Add(time.Second))))

	history := store.History("lobby")
	req.Len(history, 2)
	req.Equal("first", history[0].Text)
	req.Equal("second", history[1].Text)
}

func TestRoomStoreHistoryUnknownRoomIsEmpty(t *testing.T) {
	store := NewRoomStore(100, 50)
	require.NotNil(t, store.History("nowhere"))
	require.Empty(t, store.History("nowhere"))
}

// History returns a copy; mutating it must not leak back into the store.
func TestRoomStoreHistoryIsACopy(t *testing.T) {
	req := require.New(t)
	store := NewRoomStore(100, 50)
	req.NoError(store.Append("lobby", storeMessage("lobby", "original", time.Now())))

	history := store.History("lobby")
	history[0].Text = "mutated"

	req.Equal("original", store.History("lobby")[0].Text)
}

func TestRoomStoreEvictsOldestPastHistoryLimit(t *testing.T) {
	req := require.New(t)
	store := NewRoomStore(3, 50)

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		msg := storeMessage("lobby", fmt.Sprintf("msg-%d", i), base.Add(time.Duration(i)*time.Second))
		req.NoError(store.Append("lobby", msg))
	}

	history := store.History("lobby")
	req.Len(history, 3)
	req.Equal("msg-2", history[0].Text)
	req.Equal("msg-4", history[2].Text)
}

func TestRoomStoreRoomCap(t *testing.T) {
	req := require.New(t)
	store := NewRoomStore(100, 2)

	req.NoError(store.Append("one", storeMessage("one", "a", time.Now())))
	req.NoError(store.Ensure("two"))

	err := store.Append("three", storeMessage("three", "b", time.Now()))
	req.ErrorIs(err, ErrRoomCapacity)
	req.ErrorIs(store.Ensure("three"), ErrRoomCapacity)

	// Existing rooms are unaffected by the rejected creation.
	req.Equal(2, store.RoomCount())
	req.NoError(store.Append("one", storeMessage("one", "c", time.Now())))
	req.NoError(store.Ensure("two"))
}

// Timestamps must be non-decreasing within a room even when callers built
// their messages out of order.
func TestRoomStoreClampsTimestamps(t *testing.T) {
	req := require.New(t)
	store := NewRoomStore(100, 50)

	base := time.Now().UTC()
	req.NoError(store.Append("lobby", storeMessage("lobby", "later", base)))
	req.NoError(store.Append("lobby", storeMessage("lobby", "earlier", base.Add(-time.Minute))))

	history := store.History("lobby")
	req.Equal(base, history[1].Timestamp)
}

func TestRoomStoreSweep(t *testing.T) {
	req := require.New(t)
	store := NewRoomStore(100, 50)

	req.NoError(store.Ensure("abandoned"))
	req.NoError(store.Ensure("occupied"))
	req.NoError(store.Append("archived", storeMessage("archived", "still here", time.Now())))

	members := map[string]int{"occupied": 1}
	removed := store.Sweep(func(room string) int { return members[room] })

	req.Equal(1, removed)
	req.Equal(2, store.RoomCount())
	// A room with history survives an empty period; a room with members
	// survives without history.
	req.Len(store.History("archived"), 1)

	// The swept room can be created again afterwards.
	req.NoError(store.Ensure("abandoned"))
	req.Equal(3, store.RoomCount())
}
