// Package noop provides an authenticator that accepts every request as the
// anonymous identity. Used when auth.type is "none".
package noop

import (
	"context"
	"net/http"

	"github.com/rhuss/enginehub/pkg/auth"
)

// Authenticator always votes Yes.
type Authenticator struct{}

var _ auth.Authenticator = Authenticator{}

// Authenticate returns a copy of auth.Anonymous.
func (Authenticator) Authenticate(_ context.Context, _ *http.Request) auth.Result {
	id := auth.Anonymous
	return auth.Result{Decision: auth.Yes, Identity: &id}
}
