package domain

// Account is a login directory record: the identity plus its stored
// bcrypt password hash. The core never sees the hash, only the User.
type Account struct {
	User         User
	PasswordHash string
}

// NewAccount avoids raw literals in adapters and keeps construction obvious.
func NewAccount(user User, passwordHash string) *Account {
	return &Account{User: user, PasswordHash: passwordHash}
}
