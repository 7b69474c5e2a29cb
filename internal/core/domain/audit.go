package domain

import "time"

// AuditAction names an auth event worth keeping.
type AuditAction string

const (
	AuditLoginSucceeded   AuditAction = "login_succeeded"
	AuditLoginFailed      AuditAction = "login_failed"
	AuditLogout           AuditAction = "logout"
	AuditPermissionDenied AuditAction = "permission_denied"
	AuditSessionInvalid   AuditAction = "session_invalid"
)

// AuditEvent is one entry in the auth audit trail.
type AuditEvent struct {
	Action      AuditAction
	Username    string
	Operation   string
	Path        string
	Permissions []Code
	Reason      string
	RequestID   string
	At          time.Time
}
