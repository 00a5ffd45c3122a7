package auth

import (
	"context"
	"errors"
	"net/http"
	"slices"
)

// Decision is the vote of one authenticator.
type Decision int

const (
	// Yes means credentials are valid. The chain stops and the identity is used.
	Yes Decision = iota

	// No means credentials are present but invalid. The chain stops and the
	// request is rejected.
	No

	// Abstain means this authenticator cannot handle the credentials.
	// The chain continues to the next authenticator.
	Abstain
)

func (d Decision) String() string {
	switch d {
	case Yes:
		return "yes"
	case No:
		return "no"
	case Abstain:
		return "abstain"
	}
	return "unknown"
}

// Result carries the outcome of an authentication attempt.
type Result struct {
	Decision Decision
	Identity *Identity // set only when Decision == Yes
	Err      error     // set only when Decision == No
}

// Identity is an authenticated caller.
type Identity struct {
	// Subject is the unique caller id (required, non-empty).
	Subject string

	// Method names the authenticator that produced the identity
	// (apikey, jwt, none).
	Method string

	// Scopes lists granted scopes. An identity without scopes is
	// unrestricted.
	Scopes []string
}

// HasScope reports whether the identity may use scope. Identities
// without any scopes pass every check.
func (id *Identity) HasScope(scope string) bool {
	if id == nil {
		return false
	}
	if len(id.Scopes) == 0 {
		return true
	}
	return slices.Contains(id.Scopes, scope)
}

type identityKey struct{}

// SetIdentity returns a copy of ctx carrying id.
func SetIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity stored by the middleware, or
// nil when the request never passed authentication.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}

// Allowed reports whether the caller in ctx may use scope. A context
// without an identity is allowed; catalog writes are only guarded where
// authentication runs.
func Allowed(ctx context.Context, scope string) bool {
	id := IdentityFromContext(ctx)
	return id == nil || id.HasScope(scope)
}

// Authenticator examines request credentials and votes.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) Result
}

// Sentinel errors.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("access denied")
	ErrRateLimited     = errors.New("rate limit exceeded")
)

// Anonymous is the identity used when the chain accepts by default.
var Anonymous = Identity{Subject: "anonymous", Method: "none"}

// Chain evaluates authenticators in order.
type Chain struct {
	// Authenticators are evaluated left to right.
	Authenticators []Authenticator

	// DefaultDecision is used when all authenticators abstain.
	// Yes accepts as Anonymous; anything else rejects.
	DefaultDecision Decision
}

// Authenticate runs the chain and stops on the first Yes or No.
func (c *Chain) Authenticate(ctx context.Context, r *http.Request) Result {
	for _, authn := range c.Authenticators {
		result := authn.Authenticate(ctx, r)
		if result.Decision != Abstain {
			return result
		}
	}

	if c.DefaultDecision == Yes {
		id := Anonymous
		return Result{Decision: Yes, Identity: &id}
	}
	return Result{Decision: No, Err: ErrUnauthenticated}
}
