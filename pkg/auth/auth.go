// Package auth resolves the user an API request acts for. Requests are
// authenticated by a Chain of authenticators: static API keys, HS256 JWT
// bearer tokens and an optional header set by a trusted reverse proxy.
package auth

import (
	"context"
	"errors"
	"net/http"
)

// Decision is the outcome of one authenticator.
type Decision int

const (
	// Abstain means the authenticator does not handle the credentials
	// found in the request. The chain moves on.
	Abstain Decision = iota
	// Yes means the credentials are valid.
	Yes
	// No means credentials were presented and rejected.
	No
)

var ErrUnauthenticated = errors.New("invalid credentials")

// Result is what an authenticator decided. User is set on Yes, Err on No.
type Result struct {
	Decision Decision
	User     string
	Err      error
}

// Authenticator inspects the credentials of a request.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) Result
}

// Chain runs authenticators in order until one says Yes or No.
type Chain []Authenticator

// Authenticate returns the first non abstaining result. When every
// authenticator abstains the request is anonymous and Abstain is returned.
func (c Chain) Authenticate(ctx context.Context, r *http.Request) Result {
	for _, a := range c {
		if res := a.Authenticate(ctx, r); res.Decision != Abstain {
			return res
		}
	}
	return Result{Decision: Abstain}
}

type userKey struct{}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext returns the user stored by WithUser.
func UserFromContext(ctx context.Context) (string, bool) {
	u, ok := ctx.Value(userKey{}).(string)
	return u, ok && u != ""
}

// ContextIdentity resolves the current user from the request context.
type ContextIdentity struct{}

func (ContextIdentity) CurrentUser(ctx context.Context) (string, bool) {
	return UserFromContext(ctx)
}
