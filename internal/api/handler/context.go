package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/marketing-access/internal/api/middleware"
	"github.com/99minutos/marketing-access/internal/core/domain"
)

// Sessions is the part of the session manager the handlers use.
type Sessions interface {
	Load(c echo.Context) (*domain.SessionRecord, error)
	LoadToken(c echo.Context) (string, bool)
	Save(c echo.Context, payload domain.SessionPayload) error
	Verify(c echo.Context, token string) bool
	Clear(c echo.Context)
}

type auditRecorder interface {
	Record(ctx context.Context, event domain.AuditEvent) error
}

// currentUser returns the identity hydrated by the identity middleware.
// Anonymous requests are rejected with 401 before any service call.
func currentUser(c echo.Context) (domain.Identity, error) {
	id := middleware.CurrentIdentity(c)
	if !id.Authenticated() {
		return id, echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
	}
	return id, nil
}

func requestID(c echo.Context) string {
	return c.Response().Header().Get(echo.HeaderXRequestID)
}
