package interfaces

import "context"

// User is the authenticated author as seen by the editorial engine.
type User struct {
	ID    string
	Name  string
	Email string
}

// IdentityProvider resolves the author of the current request. A nil user
// with a nil error means nobody is signed in.
type IdentityProvider interface {
	CurrentUser(ctx context.Context) (*User, error)
}
