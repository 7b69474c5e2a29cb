package domain

import (
	"context"
	"encoding/json"
	"fmt"
)

// Identity is the request-scoped, read-only projection of a session's user
// payload. It is built per request and never persisted.
type Identity struct {
	id            int64
	username      string
	displayName   string
	email         string
	active        bool
	staff         bool
	superuser     bool
	authenticated bool
	employee      json.RawMessage
}

// NewIdentity builds an authenticated identity from the authority's user
// payload. It fails when the payload is missing or has no username.
func NewIdentity(u *User, employee json.RawMessage) (Identity, error) {
	if u == nil {
		return Identity{}, fmt.Errorf("%w: missing user payload", ErrInvalidIdentity)
	}
	if u.Username == "" {
		return Identity{}, fmt.Errorf("%w: empty username", ErrInvalidIdentity)
	}
	return Identity{
		id:            u.ID,
		username:      u.Username,
		displayName:   u.FullName(),
		email:         u.Email,
		active:        u.Active(),
		staff:         u.IsStaff,
		superuser:     u.IsSuperuser,
		authenticated: true,
		employee:      employee,
	}, nil
}

// Anonymous returns the identity used when no session could be resolved.
func Anonymous() Identity { return Identity{} }

func (i Identity) ID() int64 { return i.id }
func (i Identity) Username() string { return i.username }
func (i Identity) DisplayName() string { return i.displayName }
func (i Identity) Email() string { return i.email }
func (i Identity) IsActive() bool { return i.active }
func (i Identity) IsStaff() bool { return i.staff }
func (i Identity) IsSuperuser() bool { return i.superuser }
func (i Identity) Authenticated() bool { return i.authenticated }
func (i Identity) Employee() json.RawMessage { return i.employee }

// String is the name used in logs and audit records.
func (i Identity) String() string {
	if !i.authenticated {
		return "anonymous"
	}
	return i.username
}

type identityKey struct{}

// ContextWithIdentity attaches id to ctx.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity attached to ctx, or Anonymous.
func IdentityFromContext(ctx context.Context) Identity {
	if id, ok := ctx.Value(identityKey{}).(Identity); ok {
		return id
	}
	return Anonymous()
}
