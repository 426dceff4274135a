package domain

import (
	"context"
	"errors"
	"fmt"

	"fyndora/internal/audit"
	"fyndora/internal/platform/secrets"
)

var ErrInvalidCredentials = errors.New("domain: invalid credentials")

// Accounts authenticates users against the directory. Password hashes are
// bcrypt; a user with an empty hash can never log in.
type Accounts struct {
	directory *MemoryDirectory
}

func NewAccounts(directory *MemoryDirectory) *Accounts {
	return &Accounts{directory: directory}
}

// Authenticate returns the user for valid credentials, ErrInvalidCredentials
// otherwise. Unknown usernames and wrong passwords are indistinguishable to
// the caller.
func (a *Accounts) Authenticate(_ context.Context, username, password string) (*User, error) {
	u, ok := a.directory.FindUserByUsername(username)
	if !ok || u.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := secrets.Verify(password, u.PasswordHash); err != nil {
		if errors.Is(err, secrets.ErrMismatch) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("verify credentials: %w", err)
	}
	if !u.IsActive {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// ActorRef builds the trail reference for a user.
func ActorRef(u *User) *audit.Reference {
	if u == nil {
		return nil
	}
	return &audit.Reference{Kind: KindUser, ID: u.UserID}
}
