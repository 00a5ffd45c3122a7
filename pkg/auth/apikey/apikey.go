// Package apikey validates static API keys sent as bearer tokens or in the
// X-API-Key header. Keys are kept only as SHA-256 hashes and compared in
// constant time.
package apikey

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/rhuss/enginehub/pkg/auth"
)

// HeaderName is the alternative header carrying a raw key.
const HeaderName = "X-API-Key"

// Key configures one accepted key.
type Key struct {
	Key     string
	Subject string
	Scopes  []string
}

type entry struct {
	hash    [32]byte
	subject string
	scopes  []string
}

// Authenticator validates keys against a static set.
type Authenticator struct {
	entries []entry
}

var _ auth.Authenticator = (*Authenticator)(nil)

// New hashes the given keys. Plaintext keys are not retained.
func New(keys []Key) *Authenticator {
	a := &Authenticator{entries: make([]entry, 0, len(keys))}
	for _, k := range keys {
		a.entries = append(a.entries, entry{
			hash:    sha256.Sum256([]byte(k.Key)),
			subject: k.Subject,
			scopes:  append([]string(nil), k.Scopes...),
		})
	}
	return a
}

// Authenticate abstains when no key is presented, votes No for an unknown
// key and Yes with the key's identity otherwise.
func (a *Authenticator) Authenticate(_ context.Context, r *http.Request) auth.Result {
	token, present := extractKey(r)
	if !present {
		return auth.Result{Decision: auth.Abstain}
	}
	if token == "" {
		return auth.Result{Decision: auth.No, Err: auth.ErrUnauthenticated}
	}

	hash := sha256.Sum256([]byte(token))
	for _, e := range a.entries {
		if subtle.ConstantTimeCompare(hash[:], e.hash[:]) == 1 {
			return auth.Result{
				Decision: auth.Yes,
				Identity: &auth.Identity{
					Subject: e.subject,
					Method:  "apikey",
					Scopes:  append([]string(nil), e.scopes...),
				},
			}
		}
	}
	return auth.Result{Decision: auth.No, Err: auth.ErrUnauthenticated}
}

// extractKey returns the presented key and whether any key-bearing header
// was set. X-API-Key wins over Authorization.
func extractKey(r *http.Request) (string, bool) {
	if v, ok := r.Header[http.CanonicalHeaderKey(HeaderName)]; ok && len(v) > 0 {
		return strings.TrimSpace(v[0]), true
	}
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")), true
}
