package auth

import (
	"errors"

	"github.com/dkeye/chatter/internal/domain"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is deliberately generic: the response must not
// reveal whether the email or the password was wrong.
var ErrInvalidCredentials = errors.New("invalid username or password")

// ErrUnknownIdentity rejects tokens whose subject no longer resolves to a
// directory account.
var ErrUnknownIdentity = errors.New("unknown identity")

type Service struct {
	directory *Directory
	tokens    *TokenCodec
}

func NewService(directory *Directory, tokens *TokenCodec) *Service {
	return &Service{directory: directory, tokens: tokens}
}

// Login checks the email/password pair and issues a bearer token for the
// matching account.
func (s *Service) Login(email, password string) (string, domain.User, error) {
	acc, ok := s.directory.ByEmail(email)
	if !ok {
		return "", domain.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return "", domain.User{}, ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(acc.User.ID)
	if err != nil {
		log.Error().Str("module", "auth.service").Err(err).Msg("token issue failed")
		return "", domain.User{}, err
	}
	return token, acc.User, nil
}

// Verify resolves a presented credential to a verified identity. This is the
// verifier contract the session gate consumes: called once per connection
// attempt, never re-validated afterward.
func (s *Service) Verify(credential string) (domain.User, error) {
	id, err := s.tokens.Subject(credential)
	if err != nil {
		return domain.User{}, err
	}
	acc, ok := s.directory.ByID(id)
	if !ok {
		return domain.User{}, ErrUnknownIdentity
	}
	return acc.User, nil
}
