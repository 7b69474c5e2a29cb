package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/marketing-access/internal/api/metrics"
	"github.com/99minutos/marketing-access/internal/core/domain"
)

type IdentityConfig struct {
	LoginPath   string
	LandingPath string
	// Exempt lists path prefixes that do not require a session.
	Exempt []string
}

// Identity resolves the session on every request and attaches the synthetic
// identity to the echo.Context and the request context. Non-exempt requests
// without a usable session are redirected to the login page. Exempt requests
// are still hydrated when a session exists.
func Identity(sessions SessionStore, audit Auditor, cfg IdentityConfig, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			exempt := isExempt(path, cfg.Exempt)
			toLogin := func() error {
				return c.Redirect(http.StatusFound, LoginURL(cfg.LoginPath, cfg.LandingPath, c.Request().URL.RequestURI()))
			}

			rec, err := sessions.Load(c)
			if err != nil {
				if !errors.Is(err, domain.ErrSessionNotFound) {
					log.Error().Err(err).Str("path", path).Msg("session lookup failed")
				}
				if exempt {
					return next(c)
				}
				return toLogin()
			}

			id, err := identityFor(rec)
			if err != nil {
				metrics.SessionsInvalidTotal.Inc()
				log.Warn().
					Err(err).
					Str("user", rec.Username).
					Str("path", path).
					Str("reason", "token without identity").
					Msg("invalid session")
				recordAudit(c, audit, log, domain.AuditEvent{
					Action:   domain.AuditSessionInvalid,
					Username: rec.Username,
					Path:     path,
					Reason:   err.Error(),
				})
				if c.Request().Context().Err() == nil {
					sessions.Clear(c)
				}
				if exempt {
					return next(c)
				}
				return toLogin()
			}

			setIdentity(c, id)
			sessions.Touch(c)
			return next(c)
		}
	}
}

func identityFor(rec *domain.SessionRecord) (domain.Identity, error) {
	if rec.Token == "" {
		return domain.Identity{}, errors.New("session has no token")
	}
	if rec.UserInfo == nil {
		return domain.Identity{}, domain.ErrInvalidIdentity
	}
	return domain.NewIdentity(rec.UserInfo.User, rec.UserInfo.Employee)
}

func isExempt(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func recordAudit(c echo.Context, audit Auditor, log zerolog.Logger, e domain.AuditEvent) {
	if audit == nil {
		return
	}
	e.RequestID = requestID(c)
	e.At = time.Now()
	if err := audit.Record(c.Request().Context(), e); err != nil {
		log.Error().Err(err).Str("action", string(e.Action)).Msg("audit write failed")
	}
}
