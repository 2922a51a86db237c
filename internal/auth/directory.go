// Package auth implements the login hand-off and the identity verifier the
// chat core consumes: bcrypt-checked logins that issue signed bearer tokens,
// and token verification that resolves a token back to a known identity.
package auth

import (
	"sync"

	"github.com/dkeye/chatter/internal/config"
	"github.com/dkeye/chatter/internal/domain"
	"github.com/rs/zerolog/log"
)

// Directory is the in-memory account set the login service and verifier
// read from. Accounts are seeded once at startup; lookups are read-mostly.
type Directory struct {
	mu      sync.RWMutex
	byEmail map[string]*domain.Account
	byID    map[domain.UserID]*domain.Account
}

func NewDirectory() *Directory {
	return &Directory{
		byEmail: make(map[string]*domain.Account),
		byID:    make(map[domain.UserID]*domain.Account),
	}
}

// NewDirectoryFromConfig seeds a directory with the configured accounts.
func NewDirectoryFromConfig(users []config.UserAccount) *Directory {
	d := NewDirectory()
	for _, u := range users {
		user, err := domain.NewUser(domain.UserID(u.ID), u.Name, u.Email)
		if err != nil {
			log.Warn().Str("module", "auth.directory").Str("id", u.ID).Err(err).Msg("skipping invalid account")
			continue
		}
		d.Add(domain.NewAccount(*user, u.PasswordHash))
	}
	log.Info().Str("module", "auth.directory").Int("accounts", d.Len()).Msg("directory seeded")
	return d
}

func (d *Directory) Add(acc *domain.Account) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byEmail[acc.User.Email] = acc
	d.byID[acc.User.ID] = acc
}

func (d *Directory) ByEmail(email string) (*domain.Account, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	acc, ok := d.byEmail[email]
	return acc, ok
}

func (d *Directory) ByID(id domain.UserID) (*domain.Account, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	acc, ok := d.byID[id]
	return acc, ok
}

func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byID)
}
