package domain

import (
	"context"
	"errors"
	"testing"
)

func TestNewIdentity(t *testing.T) {
	id, err := NewIdentity(&User{ID: 7, Username: "alice", FirstName: "Alice"}, nil)
	if err != nil {
		t.Fatalf("NewIdentity returned error: %v", err)
	}
	if !id.Authenticated() || id.Username() != "alice" || id.ID() != 7 {
		t.Fatalf("unexpected identity: %+v", id)
	}
	if id.DisplayName() != "Alice" {
		t.Fatalf("expected display name Alice, got %q", id.DisplayName())
	}
	if !id.IsActive() {
		t.Fatalf("missing is_active must default to active")
	}
}

func TestNewIdentity_DisplayNameFallsBackToUsername(t *testing.T) {
	id, err := NewIdentity(&User{Username: "bob"}, nil)
	if err != nil {
		t.Fatalf("NewIdentity returned error: %v", err)
	}
	if id.DisplayName() != "bob" {
		t.Fatalf("expected username fallback, got %q", id.DisplayName())
	}
}

func TestNewIdentity_RejectsMissingUsername(t *testing.T) {
	if _, err := NewIdentity(nil, nil); !errors.Is(err, ErrInvalidIdentity) {
		t.Fatalf("expected ErrInvalidIdentity for nil user, got %v", err)
	}
	if _, err := NewIdentity(&User{FirstName: "Ghost"}, nil); !errors.Is(err, ErrInvalidIdentity) {
		t.Fatalf("expected ErrInvalidIdentity for empty username, got %v", err)
	}
}

func TestIdentityContext(t *testing.T) {
	if got := IdentityFromContext(context.Background()); got.Authenticated() || got.String() != "anonymous" {
		t.Fatalf("expected anonymous identity, got %+v", got)
	}

	id, _ := NewIdentity(&User{Username: "alice"}, nil)
	ctx := ContextWithIdentity(context.Background(), id)
	if got := IdentityFromContext(ctx); got.Username() != "alice" {
		t.Fatalf("expected alice, got %q", got.Username())
	}
}
