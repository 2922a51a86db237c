package chat

import (
	"fmt"
	"time"

	"github.com/dkeye/chatter/internal/domain"
	"github.com/dkeye/chatter/internal/presence"
	"github.com/rs/zerolog/log"
)

// Verifier resolves a presented credential to a verified identity. Auth is a
// collaborator; the core only consumes this contract.
type Verifier interface {
	Verify(credential string) (domain.User, error)
}

// Gate runs the per-connection handshake: verify the credential once, then
// register the connection in the presence store with no room set. A rejected
// credential creates no state at all.
type Gate struct {
	verifier Verifier
	store    *presence.Store
	now      func() time.Time
}

func NewGate(verifier Verifier, store *presence.Store) *Gate {
	return &Gate{verifier: verifier, store: store, now: time.Now}
}

// Admit returns the verified identity plus the welcome notification for the
// admitted connection. The welcome goes only to that connection: it has no
// room yet, so nothing is broadcast.
func (g *Gate) Admit(id presence.ConnID, credential string) (domain.User, []Event, error) {
	user, err := g.verifier.Verify(credential)
	if err != nil {
		log.Warn().Str("module", "chat.gate").Str("conn", string(id)).Err(err).Msg("credential rejected")
		return domain.User{}, nil, err
	}
	if err := g.store.Admit(id, user); err != nil {
		return domain.User{}, nil, fmt.Errorf("admit %s: %w", id, err)
	}
	welcome := toConn(id, EventMessage, NewMessage(SystemSender, "Welcome to Chat App!", g.now()))
	return user, []Event{welcome}, nil
}
