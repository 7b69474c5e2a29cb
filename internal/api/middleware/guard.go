package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/marketing-access/internal/api/metrics"
	"github.com/99minutos/marketing-access/internal/core/domain"
	"github.com/99minutos/marketing-access/internal/core/ports"
)

type mode string

const (
	modeOne mode = "one"
	modeAny mode = "any"
	modeAll mode = "all"
)

type GuardConfig struct {
	LoginPath   string
	LandingPath string
}

// Guard builds permission middleware. Every check goes to the authority;
// anything other than an explicit grant is a denial.
type Guard struct {
	perms    ports.PermissionService
	resolver ports.AccessResolver
	sessions SessionStore
	audit    Auditor
	cfg      GuardConfig
	log      zerolog.Logger
}

func NewGuard(perms ports.PermissionService, resolver ports.AccessResolver, sessions SessionStore, audit Auditor, cfg GuardConfig, log zerolog.Logger) *Guard {
	return &Guard{
		perms:    perms,
		resolver: resolver,
		sessions: sessions,
		audit:    audit,
		cfg:      cfg,
		log:      log,
	}
}

type guardOptions struct {
	raise      bool
	api        bool
	redirectTo string
	operation  string
}

type GuardOption func(*guardOptions)

// Raise answers every denial with 403 instead of redirecting.
func Raise() GuardOption {
	return func(o *guardOptions) { o.raise = true }
}

// API is Raise plus a 401 JSON answer, instead of the login redirect, for
// requests without a session.
func API() GuardOption {
	return func(o *guardOptions) {
		o.raise = true
		o.api = true
	}
}

// RedirectTo sends denied requests to url instead of the first accessible
// section.
func RedirectTo(url string) GuardOption {
	return func(o *guardOptions) { o.redirectTo = url }
}

// Operation names the protected operation in denials and logs. It defaults
// to the route.
func Operation(name string) GuardOption {
	return func(o *guardOptions) { o.operation = name }
}

// RequireOne allows the request only if the token holds code.
func (g *Guard) RequireOne(code domain.Code, opts ...GuardOption) echo.MiddlewareFunc {
	codes := []domain.Code{code}
	return g.require(modeOne, codes, opts, func(c echo.Context, token string) domain.Decision {
		return g.perms.Check(c.Request().Context(), token, code)
	})
}

// RequireAny allows the request if the token holds at least one of codes.
func (g *Guard) RequireAny(codes []domain.Code, opts ...GuardOption) echo.MiddlewareFunc {
	codes = append([]domain.Code(nil), codes...)
	return g.require(modeAny, codes, opts, func(c echo.Context, token string) domain.Decision {
		return g.perms.CheckAny(c.Request().Context(), token, codes)
	})
}

// RequireAll allows the request only if the token holds every code.
func (g *Guard) RequireAll(codes []domain.Code, opts ...GuardOption) echo.MiddlewareFunc {
	codes = append([]domain.Code(nil), codes...)
	return g.require(modeAll, codes, opts, func(c echo.Context, token string) domain.Decision {
		return g.perms.CheckAll(c.Request().Context(), token, codes)
	})
}

type deniedResponse struct {
	Error      string `json:"error"`
	Permission string `json:"permission"`
	Operation  string `json:"operation"`
}

func (g *Guard) require(m mode, codes []domain.Code, opts []GuardOption, check func(echo.Context, string) domain.Decision) echo.MiddlewareFunc {
	var o guardOptions
	for _, opt := range opts {
		opt(&o)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := g.sessions.LoadToken(c)
			if !ok {
				if o.api {
					return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Authentication required"})
				}
				return c.Redirect(http.StatusFound, LoginURL(g.cfg.LoginPath, g.cfg.LandingPath, c.Request().URL.RequestURI()))
			}

			decision := check(c, token)
			metrics.PermissionDecisionsTotal.WithLabelValues(string(m), decision.String()).Inc()
			if decision.Allowed() {
				return next(c)
			}
			return g.deny(c, token, m, codes, decision, o)
		}
	}
}

func (g *Guard) deny(c echo.Context, token string, m mode, codes []domain.Code, decision domain.Decision, o guardOptions) error {
	op := o.operation
	if op == "" {
		op = c.Request().Method + " " + c.Path()
	}
	path := c.Request().URL.Path
	user := CurrentIdentity(c).String()

	g.log.Warn().
		Str("user", user).
		Str("operation", op).
		Str("permissions", domain.JoinCodes(codes)).
		Str("mode", string(m)).
		Str("decision", decision.String()).
		Str("path", path).
		Msg("permission denied")

	recordAudit(c, g.audit, g.log, domain.AuditEvent{
		Action:      domain.AuditPermissionDenied,
		Username:    user,
		Operation:   op,
		Path:        path,
		Permissions: codes,
		Reason:      decision.String(),
	})

	forbidden := func() error {
		return c.JSON(http.StatusForbidden, deniedResponse{
			Error:      "Permission denied. Required: " + domain.JoinCodes(codes),
			Permission: domain.JoinCodes(codes),
			Operation:  op,
		})
	}

	if o.raise {
		return forbidden()
	}
	if o.redirectTo != "" {
		return c.Redirect(http.StatusFound, o.redirectTo)
	}
	for _, s := range g.resolver.Accessible(c.Request().Context(), token) {
		if s.Path != path {
			return c.Redirect(http.StatusFound, s.Path)
		}
	}
	return forbidden()
}
