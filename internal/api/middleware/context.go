package middleware

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/marketing-access/internal/core/domain"
)

const identityKey = "identity"

// SessionStore is the part of the session manager the middleware needs.
type SessionStore interface {
	Load(c echo.Context) (*domain.SessionRecord, error)
	LoadToken(c echo.Context) (string, bool)
	Touch(c echo.Context)
	Clear(c echo.Context)
}

// Auditor records auth events. ports.AuditRepository satisfies it.
type Auditor interface {
	Record(ctx context.Context, event domain.AuditEvent) error
}

// CurrentIdentity returns the identity attached by Identity, or Anonymous.
func CurrentIdentity(c echo.Context) domain.Identity {
	if id, ok := c.Get(identityKey).(domain.Identity); ok {
		return id
	}
	return domain.IdentityFromContext(c.Request().Context())
}

func setIdentity(c echo.Context, id domain.Identity) {
	c.Set(identityKey, id)
	req := c.Request()
	c.SetRequest(req.WithContext(domain.ContextWithIdentity(req.Context(), id)))
}

func requestID(c echo.Context) string {
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return c.Request().Header.Get(echo.HeaderXRequestID)
}
