package domain

import "time"

// SessionRecord is the server-side state behind a session cookie.
// JSON keys follow the persisted layout: token, user_info, username.
type SessionRecord struct {
	Token     string    `json:"token"`
	UserInfo  *UserInfo `json:"user_info,omitempty"`
	Username  string    `json:"username,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewSessionRecord builds the record stored after a successful login.
func NewSessionRecord(p SessionPayload, now time.Time) SessionRecord {
	info := p.Info
	rec := SessionRecord{
		Token:     p.Token,
		UserInfo:  &info,
		CreatedAt: now.UTC(),
	}
	if info.User != nil {
		rec.Username = info.User.Username
	}
	return rec
}

// HasIdentity reports whether the record carries a usable user payload.
// A record with a token but no user is a session-integrity failure.
func (r SessionRecord) HasIdentity() bool {
	return r.UserInfo != nil && r.UserInfo.User != nil && r.UserInfo.User.Username != ""
}
