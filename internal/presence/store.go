// Package presence owns the authoritative mapping from live connection to
// identity and current room. Every membership read and write passes through
// the Store; room membership is a derived view over this single map.
package presence

import (
	"errors"
	"slices"
	"sync"

	"github.com/dkeye/chatter/internal/domain"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotAdmitted    = errors.New("connection not admitted")
	ErrAlreadyPresent = errors.New("connection already present")
)

type ConnID string

// Occupant is the read model for one admitted connection: the shape room
// rosters are built from. ID is the connection id, not the user id.
type Occupant struct {
	ID   ConnID          `json:"id"`
	Name string          `json:"name"`
	Room domain.RoomName `json:"room"`
}

type entry struct {
	user domain.User
	name string // presence display name, may diverge from user.Name on enterRoom
	room domain.RoomName
}

// Store is the single writer for all presence state. The leave+join pair of
// a room transition runs under one lock acquisition, so no reader can
// observe a half-applied transition.
type Store struct {
	mu    sync.RWMutex
	conns map[ConnID]*entry
}

func NewStore() *Store {
	return &Store{conns: make(map[ConnID]*entry)}
}

// TransitionSnapshot captures the post-transition state a room change must
// broadcast, computed under the same lock that applied the change.
type TransitionSnapshot struct {
	Mover         Occupant
	PrevRoom      domain.RoomName // empty when the connection had no room
	PrevRoomUsers []Occupant      // occupants remaining in PrevRoom
	RoomUsers     []Occupant      // occupants of the target room, mover included
	ActiveRooms   []domain.RoomName
}

// DepartureSnapshot captures what a removal must broadcast.
type DepartureSnapshot struct {
	Left        Occupant
	Room        domain.RoomName // empty when the connection had no room
	RoomUsers   []Occupant      // occupants remaining in Room
	ActiveRooms []domain.RoomName
}

// Admit registers a freshly authenticated connection with no room set.
func (s *Store) Admit(id ConnID, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conns[id]; ok {
		return ErrAlreadyPresent
	}
	s.conns[id] = &entry{user: user, name: user.Name}
	log.Info().Str("module", "presence.store").Str("conn", string(id)).Str("user", string(user.ID)).Msg("connection admitted")
	return nil
}

// Enter moves the connection into room, leaving its current room first if it
// has one. Both steps apply under a single lock acquisition.
func (s *Store) Enter(id ConnID, displayName string, room domain.RoomName) (TransitionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.conns[id]
	if !ok {
		return TransitionSnapshot{}, ErrNotAdmitted
	}

	prev := e.room
	if displayName != "" {
		e.name = displayName
	}
	e.room = room

	snap := TransitionSnapshot{
		Mover:       Occupant{ID: id, Name: e.name, Room: room},
		PrevRoom:    prev,
		RoomUsers:   s.usersInRoomLocked(room),
		ActiveRooms: s.activeRoomsLocked(),
	}
	if prev != "" {
		snap.PrevRoomUsers = s.usersInRoomLocked(prev)
	}
	log.Info().Str("module", "presence.store").Str("conn", string(id)).Str("from", string(prev)).Str("to", string(room)).Msg("room transition")
	return snap, nil
}

// Remove drops the connection entirely. Idempotent: a second call for the
// same id reports ok=false and yields no snapshot.
func (s *Store) Remove(id ConnID) (DepartureSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.conns[id]
	if !ok {
		return DepartureSnapshot{}, false
	}
	delete(s.conns, id)

	snap := DepartureSnapshot{
		Left: Occupant{ID: id, Name: e.name, Room: e.room},
		Room: e.room,
	}
	if e.room != "" {
		snap.RoomUsers = s.usersInRoomLocked(e.room)
		snap.ActiveRooms = s.activeRoomsLocked()
	}
	log.Info().Str("module", "presence.store").Str("conn", string(id)).Str("room", string(e.room)).Msg("connection removed")
	return snap, true
}

func (s *Store) Get(id ConnID) (Occupant, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.conns[id]
	if !ok {
		return Occupant{}, false
	}
	return Occupant{ID: id, Name: e.name, Room: e.room}, true
}

func (s *Store) RoomOf(id ConnID) (domain.RoomName, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.conns[id]
	if !ok || e.room == "" {
		return "", false
	}
	return e.room, true
}

// ConnsInRoom resolves the delivery set for a room broadcast, computed fresh
// from the live map at call time.
func (s *Store) ConnsInRoom(room domain.RoomName) []ConnID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ConnID, 0, len(s.conns))
	for id, e := range s.conns {
		if e.room == room {
			out = append(out, id)
		}
	}
	return out
}

func (s *Store) UsersInRoom(room domain.RoomName) []Occupant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usersInRoomLocked(room)
}

// ActiveRooms recomputes the derived room index from the live map: a room
// exists iff at least one connection currently has it set.
func (s *Store) ActiveRooms() []domain.RoomName {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeRoomsLocked()
}

// AllConns resolves the delivery set for a system-wide broadcast.
func (s *Store) AllConns() []ConnID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ConnID, 0, len(s.conns))
	for id := range s.conns {
		out = append(out, id)
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

func (s *Store) usersInRoomLocked(room domain.RoomName) []Occupant {
	out := make([]Occupant, 0, len(s.conns))
	for id, e := range s.conns {
		if e.room == room && room != "" {
			out = append(out, Occupant{ID: id, Name: e.name, Room: e.room})
		}
	}
	// Map order is random; rosters sort by name so clients render stably.
	slices.SortFunc(out, func(a, b Occupant) int {
		if a.Name != b.Name {
			if a.Name < b.Name {
				return -1
			}
			return 1
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return out
}

func (s *Store) activeRoomsLocked() []domain.RoomName {
	seen := make(map[domain.RoomName]struct{}, len(s.conns))
	out := make([]domain.RoomName, 0, len(s.conns))
	for _, e := range s.conns {
		if e.room == "" {
			continue
		}
		if _, ok := seen[e.room]; ok {
			continue
		}
		seen[e.room] = struct{}{}
		out = append(out, e.room)
	}
	slices.Sort(out)
	return out
}
