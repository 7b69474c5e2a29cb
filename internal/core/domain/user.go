package domain

import (
	"encoding/json"
	"strings"
)

// User is the identity payload issued by the RBAC authority.
type User struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	Email       string `json:"email,omitempty"`
	IsActive    *bool  `json:"is_active,omitempty"`
	IsStaff     bool   `json:"is_staff,omitempty"`
	IsSuperuser bool   `json:"is_superuser,omitempty"`
}

// Active reports the is_active flag. The authority omits it for active
// accounts, so absence means true.
func (u User) Active() bool {
	if u.IsActive == nil {
		return true
	}
	return *u.IsActive
}

// FullName joins first and last name, falling back to the username.
func (u User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// Role is a role assignment as reported by the authority.
type Role struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
}

// UserInfo is the identity bundle carried in the session record and
// returned by the user-info call. Employee is authority-specific and kept raw.
type UserInfo struct {
	User            *User           `json:"user,omitempty"`
	Employee        json.RawMessage `json:"employee,omitempty"`
	Roles           []Role          `json:"roles,omitempty"`
	Permissions     []Grant         `json:"permissions,omitempty"`
	PermissionCount int             `json:"permission_count,omitempty"`
}

// PermissionCodes returns the codes of the permission snapshot.
func (u *UserInfo) PermissionCodes() []Code {
	if u == nil {
		return nil
	}
	out := make([]Code, 0, len(u.Permissions))
	for _, g := range u.Permissions {
		if g.Code != "" {
			out = append(out, g.Code)
		}
	}
	return out
}

// SessionPayload is the successful login result: the token plus the identity
// bundle that seeds the session record.
type SessionPayload struct {
	Token string
	Info  UserInfo
}
