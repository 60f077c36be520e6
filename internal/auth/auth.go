package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"sync/atomic"
)

type contextKey string

const identityKey contextKey = "auth.identity"

// Identity represents an authenticated caller.
type Identity struct {
	Username string
	Source   string // authentication source, e.g. "basic"
}

// Authenticator is the interface for authentication strategies.
type Authenticator interface {
	Authenticate(r *http.Request) (*Identity, error)
}

var (
	ErrMissingCredentials = errors.New("missing credentials")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// BasicAuthenticator checks HTTP basic credentials against a user table that
// can be swapped at runtime.
type BasicAuthenticator struct {
	users atomic.Pointer[map[string]string] // username -> password
}

// NewBasicAuthenticator creates an authenticator for the given users.
func NewBasicAuthenticator(users map[string]string) *BasicAuthenticator {
	a := &BasicAuthenticator{}
	a.Reload(users)
	return a
}

// Reload replaces the user table.
func (a *BasicAuthenticator) Reload(users map[string]string) {
	table := make(map[string]string, len(users))
	for name, password := range users {
		table[name] = password
	}
	a.users.Store(&table)
}

// Len returns the number of configured users.
func (a *BasicAuthenticator) Len() int {
	return len(*a.users.Load())
}

// Authenticate validates the Authorization header of r.
func (a *BasicAuthenticator) Authenticate(r *http.Request) (*Identity, error) {
	username, password, ok := r.BasicAuth()
	if !ok {
		return nil, ErrMissingCredentials
	}

	users := *a.users.Load()
	expected, found := users[username]
	// Compare even for unknown users so timing does not reveal them.
	match := subtle.ConstantTimeCompare([]byte(password), []byte(expected)) == 1
	if !found || !match {
		return nil, ErrInvalidCredentials
	}

	return &Identity{
		Username: username,
		Source:   "basic",
	}, nil
}

// GetIdentity extracts the identity from the context.
func GetIdentity(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey).(*Identity)
	return id
}

// IdentityToContext stores the identity in the context.
func IdentityToContext(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}
