package middleware

import (
	"net/url"
	"strings"
)

// SafeNext returns next when it is a same-origin absolute path that does not
// lead back to the login page, and fallback otherwise.
func SafeNext(next, loginPath, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.ContainsAny(next, "\\\r\n") {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	if strings.HasPrefix(u.Path, loginPath) {
		return fallback
	}
	return next
}

// LoginURL builds the login redirect for a request to next. A next that is
// unsafe or points at the login page is replaced by landing.
func LoginURL(loginPath, landing, next string) string {
	next = SafeNext(next, loginPath, landing)
	if next == "" {
		return loginPath
	}
	return loginPath + "?next=" + escapeNext(next)
}

// escapeNext query-escapes next but keeps slashes readable.
func escapeNext(next string) string {
	return strings.ReplaceAll(url.QueryEscape(next), "%2F", "/")
}
