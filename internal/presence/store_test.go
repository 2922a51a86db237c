package presence

import (
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/dkeye/chatter/internal/domain"
)

func newTestStore() *Store {
	return NewStore()
}

func admit(t *testing.T, s *Store, id ConnID, name string) {
	t.Helper()
	if err := s.Admit(id, domain.User{ID: domain.UserID("user-" + id), Name: name, Email: name + "@example.com"}); err != nil {
		t.Fatalf("Admit(%s) failed: %v", id, err)
	}
}

func TestAdmitRejectsDuplicate(t *testing.T) {
	s := newTestStore()
	admit(t, s, "c1", "Alice")
	if err := s.Admit("c1", domain.User{ID: "u2", Name: "Bob"}); err != ErrAlreadyPresent {
		t.Errorf("expected ErrAlreadyPresent, got %v", err)
	}
}

func TestEnterRequiresAdmission(t *testing.T) {
	s := newTestStore()
	if _, err := s.Enter("ghost", "Ghost", "general"); err != ErrNotAdmitted {
		t.Errorf("expected ErrNotAdmitted, got %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("rejected enter must not create state, len=%d", s.Len())
	}
}

func TestConnectionInExactlyOneRoom(t *testing.T) {
	s := newTestStore()
	admit(t, s, "c1", "Alice")

	rooms := []domain.RoomName{"general", "random", "general", "dev"}
	for _, room := range rooms {
		if _, err := s.Enter("c1", "Alice", room); err != nil {
			t.Fatalf("Enter(%s) failed: %v", room, err)
		}
		got, ok := s.RoomOf("c1")
		if !ok || got != room {
			t.Fatalf("after Enter(%s): RoomOf = %q, ok=%v", room, got, ok)
		}
		// No other room may still list the connection.
		for _, other := range rooms {
			if other == room {
				continue
			}
			for _, id := range s.ConnsInRoom(other) {
				if id == "c1" {
					t.Fatalf("connection still listed in %q after moving to %q", other, room)
				}
			}
		}
	}
}

func TestRoomPartition(t *testing.T) {
	s := newTestStore()
	for i := 0; i < 6; i++ {
		id := ConnID(fmt.Sprintf("c%d", i))
		admit(t, s, id, fmt.Sprintf("user%d", i))
		room := domain.RoomName("general")
		if i%2 == 1 {
			room = "random"
		}
		if _, err := s.Enter(id, "", room); err != nil {
			t.Fatalf("Enter failed: %v", err)
		}
	}

	total := 0
	seen := make(map[ConnID]bool)
	for _, room := range s.ActiveRooms() {
		for _, id := range s.ConnsInRoom(room) {
			if seen[id] {
				t.Errorf("connection %s counted in two rooms", id)
			}
			seen[id] = true
			total++
		}
	}
	if total != 6 {
		t.Errorf("partition covers %d connections, want 6", total)
	}
}

func TestTransitionSnapshot(t *testing.T) {
	s := newTestStore()
	admit(t, s, "a", "Alice")
	admit(t, s, "b", "Bob")
	if _, err := s.Enter("a", "Alice", "general"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Enter("b", "Bob", "general"); err != nil {
		t.Fatal(err)
	}

	snap, err := s.Enter("b", "Bob", "random")
	if err != nil {
		t.Fatalf("Enter failed: %v", err)
	}
	if snap.PrevRoom != "general" {
		t.Errorf("PrevRoom = %q, want general", snap.PrevRoom)
	}
	if len(snap.PrevRoomUsers) != 1 || snap.PrevRoomUsers[0].ID != "a" {
		t.Errorf("PrevRoomUsers = %+v, want just a", snap.PrevRoomUsers)
	}
	if len(snap.RoomUsers) != 1 || snap.RoomUsers[0].ID != "b" {
		t.Errorf("RoomUsers = %+v, want just b", snap.RoomUsers)
	}
	wantRooms := []domain.RoomName{"general", "random"}
	if !slices.Equal(snap.ActiveRooms, wantRooms) {
		t.Errorf("ActiveRooms = %v, want %v", snap.ActiveRooms, wantRooms)
	}
}

func TestEnterUpdatesDisplayName(t *testing.T) {
	s := newTestStore()
	admit(t, s, "c1", "Alice")

	snap, err := s.Enter("c1", "Allie", "general")
	if err != nil {
		t.Fatal(err)
	}
	if snap.Mover.Name != "Allie" {
		t.Errorf("Mover.Name = %q, want Allie", snap.Mover.Name)
	}

	// Empty name keeps the current one.
	snap, err = s.Enter("c1", "", "random")
	if err != nil {
		t.Fatal(err)
	}
	if snap.Mover.Name != "Allie" {
		t.Errorf("Mover.Name = %q, want Allie after empty rename", snap.Mover.Name)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	s := newTestStore()
	admit(t, s, "c1", "Alice")
	if _, err := s.Enter("c1", "Alice", "general"); err != nil {
		t.Fatal(err)
	}

	snap, ok := s.Remove("c1")
	if !ok {
		t.Fatal("first Remove reported absent connection")
	}
	if snap.Room != "general" || snap.Left.Name != "Alice" {
		t.Errorf("unexpected departure snapshot: %+v", snap)
	}
	if len(snap.ActiveRooms) != 0 {
		t.Errorf("room with no occupants still active: %v", snap.ActiveRooms)
	}

	if _, ok := s.Remove("c1"); ok {
		t.Error("second Remove must be a no-op")
	}
	if s.Len() != 0 {
		t.Errorf("store not empty after remove, len=%d", s.Len())
	}
}

func TestEmptyRoomDisappearsFromIndex(t *testing.T) {
	s := newTestStore()
	admit(t, s, "a", "Alice")
	admit(t, s, "b", "Bob")
	if _, err := s.Enter("a", "", "general"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Enter("b", "", "random"); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Enter("b", "", "general"); err != nil {
		t.Fatal(err)
	}
	rooms := s.ActiveRooms()
	if !slices.Equal(rooms, []domain.RoomName{"general"}) {
		t.Errorf("ActiveRooms = %v, want [general]", rooms)
	}
}

func TestRosterSortedByName(t *testing.T) {
	s := newTestStore()
	admit(t, s, "c1", "Zed")
	admit(t, s, "c2", "Alice")
	admit(t, s, "c3", "Mia")
	for _, id := range []ConnID{"c1", "c2", "c3"} {
		if _, err := s.Enter(id, "", "general"); err != nil {
			t.Fatal(err)
		}
	}
	users := s.UsersInRoom("general")
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Name)
	}
	if !slices.Equal(names, []string{"Alice", "Mia", "Zed"}) {
		t.Errorf("roster order = %v", names)
	}
}

func TestConcurrentTransitions(t *testing.T) {
	s := newTestStore()
	const n = 32
	for i := 0; i < n; i++ {
		admit(t, s, ConnID(fmt.Sprintf("c%d", i)), fmt.Sprintf("user%d", i))
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := ConnID(fmt.Sprintf("c%d", i))
			for j := 0; j < 50; j++ {
				room := domain.RoomName(fmt.Sprintf("room%d", (i+j)%4))
				if _, err := s.Enter(id, "", room); err != nil {
					t.Errorf("Enter failed: %v", err)
					return
				}
				s.ConnsInRoom(room)
				s.ActiveRooms()
			}
		}(i)
	}
	wg.Wait()

	// Every connection ends in exactly one room.
	seen := make(map[ConnID]int)
	for _, room := range s.ActiveRooms() {
		for _, id := range s.ConnsInRoom(room) {
			seen[id]++
		}
	}
	if len(seen) != n {
		t.Errorf("expected %d room-assigned connections, got %d", n, len(seen))
	}
	for id, count := range seen {
		if count != 1 {
			t.Errorf("connection %s appears in %d rooms", id, count)
		}
	}
}
