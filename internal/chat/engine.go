package chat

import (
	"fmt"
	"time"

	"github.com/dkeye/chatter/internal/domain"
	"github.com/dkeye/chatter/internal/presence"
	"github.com/rs/zerolog/log"
)

// Engine applies room transitions to the presence store and computes the
// exact ordered notification set each transition must emit. It never talks
// to a transport.
type Engine struct {
	store *presence.Store
	now   func() time.Time
}

func NewEngine(store *presence.Store) *Engine {
	return &Engine{store: store, now: time.Now}
}

// EnterRoom moves the connection into room, leaving its current room first.
// The returned events are ordered: departure and roster for the vacated
// room, entry confirmation to the mover, arrival to the target room, target
// roster, then the global room list. Clients depend on that order.
//
// Re-submitting the current room re-runs the full sequence.
func (e *Engine) EnterRoom(id presence.ConnID, displayName, rawRoom string) ([]Event, error) {
	room, err := domain.ParseRoomName(rawRoom)
	if err != nil {
		return nil, err
	}

	snap, err := e.store.Enter(id, displayName, room)
	if err != nil {
		return nil, fmt.Errorf("enter room %q: %w", room, err)
	}

	mover := snap.Mover
	events := make([]Event, 0, 6)
	if snap.PrevRoom != "" {
		events = append(events,
			toRoomExcept(snap.PrevRoom, id, EventMessage,
				NewMessage(SystemSender, fmt.Sprintf("%s has left the room", mover.Name), e.now())),
			toRoomExcept(snap.PrevRoom, id, EventUserList, UserList{Users: snap.PrevRoomUsers}),
		)
	}
	events = append(events,
		toConn(id, EventMessage,
			NewMessage(SystemSender, fmt.Sprintf("You have joined the %s chat room", room), e.now())),
		toRoomExcept(room, id, EventMessage,
			NewMessage(SystemSender, fmt.Sprintf("%s has joined the room", mover.Name), e.now())),
		toRoom(room, EventUserList, UserList{Users: snap.RoomUsers}),
		toAll(EventRoomList, RoomList{Rooms: snap.ActiveRooms}),
	)
	return events, nil
}

// Disconnect removes the connection and, if it occupied a room, emits the
// same departure sequence a room exit would. Idempotent: a second call for
// the same id emits nothing.
func (e *Engine) Disconnect(id presence.ConnID) []Event {
	snap, ok := e.store.Remove(id)
	if !ok {
		log.Debug().Str("module", "chat.engine").Str("conn", string(id)).Msg("disconnect for absent connection")
		return nil
	}
	if snap.Room == "" {
		return nil
	}
	return []Event{
		toRoom(snap.Room, EventMessage,
			NewMessage(SystemSender, fmt.Sprintf("%s has left the room", snap.Left.Name), e.now())),
		toRoom(snap.Room, EventUserList, UserList{Users: snap.RoomUsers}),
		toAll(EventRoomList, RoomList{Rooms: snap.ActiveRooms}),
	}
}

// Message fans a chat message out to the sender's current room, sender
// included. Name and text pass through verbatim. A connection with no room
// produces nothing.
func (e *Engine) Message(id presence.ConnID, name, text string) []Event {
	room, ok := e.store.RoomOf(id)
	if !ok {
		return nil
	}
	return []Event{toRoom(room, EventMessage, NewMessage(name, text, e.now()))}
}

// Activity relays a typing signal to the sender's room, sender excluded.
// Fire-and-forget: no state is retained.
func (e *Engine) Activity(id presence.ConnID, name string) []Event {
	room, ok := e.store.RoomOf(id)
	if !ok {
		return nil
	}
	return []Event{toRoomExcept(room, id, EventActivity, name)}
}
