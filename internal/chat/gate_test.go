package chat

import (
	"errors"
	"testing"

	"github.com/dkeye/chatter/internal/domain"
	"github.com/dkeye/chatter/internal/presence"
)

type fakeVerifier struct {
	user domain.User
	err  error
}

func (f fakeVerifier) Verify(credential string) (domain.User, error) {
	if f.err != nil {
		return domain.User{}, f.err
	}
	return f.user, nil
}

func TestGateAdmitsVerifiedConnection(t *testing.T) {
	store := presence.NewStore()
	g := NewGate(fakeVerifier{user: domain.User{ID: "u1", Name: "Alice"}}, store)
	g.now = testClock

	user, events, err := g.Admit("c1", "token")
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if user.ID != "u1" {
		t.Errorf("user = %+v", user)
	}

	if len(events) != 1 {
		t.Fatalf("expected exactly one welcome event, got %d", len(events))
	}
	welcome := events[0]
	if welcome.Scope != ScopeConn || welcome.Conn != "c1" {
		t.Errorf("welcome must target only the admitted connection: %+v", welcome)
	}
	msg := welcome.Payload.(Message)
	if msg.Name != SystemSender || msg.Text != "Welcome to Chat App!" {
		t.Errorf("welcome payload = %+v", msg)
	}

	occ, ok := store.Get("c1")
	if !ok {
		t.Fatal("connection not registered")
	}
	if occ.Room != "" {
		t.Errorf("admitted connection must start with no room, got %q", occ.Room)
	}
}

func TestGateRejectionCreatesNoState(t *testing.T) {
	store := presence.NewStore()
	rejection := errors.New("bad credential")
	g := NewGate(fakeVerifier{err: rejection}, store)

	_, events, err := g.Admit("c1", "token")
	if !errors.Is(err, rejection) {
		t.Fatalf("expected verifier error, got %v", err)
	}
	if events != nil {
		t.Errorf("rejected admit emitted events: %v", events)
	}
	if store.Len() != 0 {
		t.Error("rejected admit registered a connection")
	}
}

func TestGateRejectsDuplicateConnID(t *testing.T) {
	store := presence.NewStore()
	g := NewGate(fakeVerifier{user: domain.User{ID: "u1", Name: "Alice"}}, store)

	if _, _, err := g.Admit("c1", "token"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := g.Admit("c1", "token"); !errors.Is(err, presence.ErrAlreadyPresent) {
		t.Errorf("expected ErrAlreadyPresent, got %v", err)
	}
}
