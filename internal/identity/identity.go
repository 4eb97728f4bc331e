// Package identity provides IdentityProvider implementations.
package identity

import (
	"context"

	"github.com/goliatone/go-editorial/pkg/interfaces"
)

type contextKey struct{}

// WithUser returns a context carrying the signed in author.
func WithUser(ctx context.Context, user *interfaces.User) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// FromContext returns the author stored by WithUser.
func FromContext(ctx context.Context) (*interfaces.User, bool) {
	if ctx == nil {
		return nil, false
	}
	user, ok := ctx.Value(contextKey{}).(*interfaces.User)
	return user, ok && user != nil
}

// Context resolves the author from the request context, falling back to
// Fallback when the context carries none.
type Context struct {
	Fallback interfaces.IdentityProvider
}

func (p Context) CurrentUser(ctx context.Context) (*interfaces.User, error) {
	if user, ok := FromContext(ctx); ok {
		return user, nil
	}
	if p.Fallback != nil {
		return p.Fallback.CurrentUser(ctx)
	}
	return nil, nil
}

// Static always returns the same author. A nil user means signed out.
type Static struct {
	User *interfaces.User
}

func (p Static) CurrentUser(context.Context) (*interfaces.User, error) {
	if p.User == nil {
		return nil, nil
	}
	user := *p.User
	return &user, nil
}

// Func adapts a function to IdentityProvider.
type Func func(ctx context.Context) (*interfaces.User, error)

func (f Func) CurrentUser(ctx context.Context) (*interfaces.User, error) {
	return f(ctx)
}
