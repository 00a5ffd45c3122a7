package auth

import (
	"context"
	"net/http"
	"testing"
)

// mockAuthn is a test authenticator with a fixed vote.
type mockAuthn struct {
	result Result
}

func (m *mockAuthn) Authenticate(_ context.Context, _ *http.Request) Result {
	return m.result
}

var _ Authenticator = (*mockAuthn)(nil)

func yes(subject string, scopes ...string) *mockAuthn {
	return &mockAuthn{result: Result{Decision: Yes, Identity: &Identity{Subject: subject, Scopes: scopes}}}
}

func no() *mockAuthn {
	return &mockAuthn{result: Result{Decision: No, Err: ErrUnauthenticated}}
}

func abstain() *mockAuthn {
	return &mockAuthn{result: Result{Decision: Abstain}}
}

func TestChain(t *testing.T) {
	tests := []struct {
		name        string
		authns      []Authenticator
		def         Decision
		want        Decision
		wantSubject string
	}{
		{"first yes stops", []Authenticator{yes("alice"), no()}, No, Yes, "alice"},
		{"first no stops", []Authenticator{no(), yes("bob")}, No, No, ""},
		{"abstain then yes", []Authenticator{abstain(), yes("jwt-user")}, No, Yes, "jwt-user"},
		{"all abstain, default reject", []Authenticator{abstain(), abstain()}, No, No, ""},
		{"all abstain, default accept", []Authenticator{abstain()}, Yes, Yes, "anonymous"},
		{"empty chain, default reject", nil, No, No, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := &Chain{Authenticators: tt.authns, DefaultDecision: tt.def}
			r, _ := http.NewRequest(http.MethodGet, "/", nil)
			result := chain.Authenticate(context.Background(), r)
			if result.Decision != tt.want {
				t.Fatalf("Decision = %s, want %s", result.Decision, tt.want)
			}
			if tt.wantSubject != "" && result.Identity.Subject != tt.wantSubject {
				t.Errorf("Subject = %q, want %q", result.Identity.Subject, tt.wantSubject)
			}
			if result.Decision == No && result.Err == nil {
				t.Error("No decision without error")
			}
		})
	}
}

func TestChain_DefaultIdentityIsCopied(t *testing.T) {
	chain := &Chain{DefaultDecision: Yes}
	r, _ := http.NewRequest(http.MethodGet, "/", nil)
	result := chain.Authenticate(context.Background(), r)
	result.Identity.Subject = "mutated"
	if Anonymous.Subject != "anonymous" {
		t.Error("default identity shared between requests")
	}
}

func TestIdentity_HasScope(t *testing.T) {
	tests := []struct {
		name string
		id   *Identity
		want bool
	}{
		{"nil identity", nil, false},
		{"no scopes is unrestricted", &Identity{Subject: "a"}, true},
		{"scope granted", &Identity{Subject: "a", Scopes: []string{"catalog:read", "catalog:write"}}, true},
		{"scope missing", &Identity{Subject: "a", Scopes: []string{"catalog:read"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.id.HasScope("catalog:write"); got != tt.want {
				t.Errorf("HasScope() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecisionString(t *testing.T) {
	if Yes.String() != "yes" || No.String() != "no" || Abstain.String() != "abstain" || Decision(9).String() != "unknown" {
		t.Error("unexpected Decision strings")
	}
}

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()
	if IdentityFromContext(ctx) != nil {
		t.Error("expected nil identity from empty context")
	}

	ctx = SetIdentity(ctx, &Identity{Subject: "alice"})
	got := IdentityFromContext(ctx)
	if got == nil || got.Subject != "alice" {
		t.Errorf("got %v, want alice", got)
	}
}

func TestAllowed(t *testing.T) {
	tests := []struct {
		name string
		id   *Identity
		want bool
	}{
		{"no identity", nil, true},
		{"unrestricted identity", &Identity{Subject: "ops"}, true},
		{"granted scope", &Identity{Subject: "ops", Scopes: []string{"catalog:read", "catalog:write"}}, true},
		{"missing scope", &Identity{Subject: "viewer", Scopes: []string{"catalog:read"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			if tt.id != nil {
				ctx = SetIdentity(ctx, tt.id)
			}
			if got := Allowed(ctx, "catalog:write"); got != tt.want {
				t.Errorf("Allowed() = %v, want %v", got, tt.want)
			}
		})
	}
}
