// Package chat holds the session/presence core: the gate that admits
// authenticated connections, the engine that applies room transitions, and
// the notification events both of them emit. Events say what happened and
// who must hear it; delivery belongs to the adapters.
package chat

import (
	"time"

	"github.com/dkeye/chatter/internal/domain"
	"github.com/dkeye/chatter/internal/presence"
)

// SystemSender is the reserved sender name for system-authored messages.
// Clients render it without an attributed name or timestamp.
const SystemSender = "Admin"

// Wire event names, shared with the websocket adapter.
const (
	EventMessage  = "message"
	EventActivity = "activity"
	EventUserList = "userList"
	EventRoomList = "roomList"
)

type Scope int

const (
	ScopeConn Scope = iota // one connection
	ScopeRoom              // every connection currently in Room, minus Exclude
	ScopeAll               // every admitted connection
)

// Event is one notification to fan out: wire event name, target scope and
// payload. The engine returns ordered event slices; the router resolves the
// recipient set at dispatch time.
type Event struct {
	Name    string
	Scope   Scope
	Conn    presence.ConnID // target for ScopeConn
	Room    domain.RoomName // target for ScopeRoom
	Exclude presence.ConnID // optional originator exclusion for ScopeRoom
	Payload any
}

// Message is the server→client chat message payload.
type Message struct {
	Name string `json:"name"`
	Text string `json:"text"`
	Time string `json:"time"`
}

// UserList carries a room roster.
type UserList struct {
	Users []presence.Occupant `json:"users"`
}

// RoomList carries the names of every room with at least one occupant.
type RoomList struct {
	Rooms []domain.RoomName `json:"rooms"`
}

// NewMessage stamps a message with an hour:minute:second wall-clock string.
func NewMessage(name, text string, at time.Time) Message {
	return Message{Name: name, Text: text, Time: at.Format("3:04:05 PM")}
}

func toConn(id presence.ConnID, name string, payload any) Event {
	return Event{Name: name, Scope: ScopeConn, Conn: id, Payload: payload}
}

func toRoom(room domain.RoomName, name string, payload any) Event {
	return Event{Name: name, Scope: ScopeRoom, Room: room, Payload: payload}
}

func toRoomExcept(room domain.RoomName, exclude presence.ConnID, name string, payload any) Event {
	return Event{Name: name, Scope: ScopeRoom, Room: room, Exclude: exclude, Payload: payload}
}

func toAll(name string, payload any) Event {
	return Event{Name: name, Scope: ScopeAll, Payload: payload}
}
