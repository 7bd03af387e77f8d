// Package identity models who is acting on a request: an authenticated user
// or an anonymous visitor.
package identity

import (
	"context"
	"fmt"

	"github.com/garnizeh/jobvacancy/pkg/models"
	"github.com/garnizeh/jobvacancy/pkg/repository"
)

// Actor is either Authenticated (carrying a user) or Anonymous. The zero
// value is Anonymous.
type Actor struct {
	user *models.User
}

func Anonymous() Actor { return Actor{} }

// Authenticated wraps u. A nil u yields Anonymous.
func Authenticated(u *models.User) Actor { return Actor{user: u} }

// User returns the authenticated user, or false for an anonymous actor.
func (a Actor) User() (*models.User, bool) {
	return a.user, a.user != nil
}

func (a Actor) IsAnonymous() bool { return a.user == nil }

// Owns reports whether the actor is the authenticated user with id ownerID.
// Anonymous actors own nothing.
func (a Actor) Owns(ownerID int64) bool {
	return a.user != nil && a.user.ID == ownerID
}

func (a Actor) String() string {
	if a.user == nil {
		return "anonymous"
	}
	return a.user.Login
}

type ctxKey string

const ctxLogin ctxKey = "login"

// WithLogin returns a context carrying the authenticated login.
func WithLogin(ctx context.Context, login string) context.Context {
	return context.WithValue(ctx, ctxLogin, login)
}

// LoginFromContext returns the login stored by WithLogin.
func LoginFromContext(ctx context.Context) (string, bool) {
	login, ok := ctx.Value(ctxLogin).(string)
	return login, ok && login != ""
}

// ContextResolver resolves the acting user from the login in the request
// context.
type ContextResolver struct {
	users repository.UserRepo
}

func NewContextResolver(users repository.UserRepo) *ContextResolver {
	return &ContextResolver{users: users}
}

// CurrentUser returns Anonymous when no login is present or the login does
// not match a stored user.
func (r *ContextResolver) CurrentUser(ctx context.Context) (Actor, error) {
	login, ok := LoginFromContext(ctx)
	if !ok {
		return Anonymous(), nil
	}

	u, err := r.users.GetByLogin(ctx, login)
	if err != nil {
		return Anonymous(), fmt.Errorf("resolve user %q: %w", login, err)
	}

	return Authenticated(u), nil
}
