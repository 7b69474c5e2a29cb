package api

import (
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/99minutos/marketing-access/internal/api/handler"
	"github.com/99minutos/marketing-access/internal/api/middleware"
	"github.com/99minutos/marketing-access/internal/api/session"
	"github.com/99minutos/marketing-access/internal/core/domain"
	"github.com/99minutos/marketing-access/internal/core/ports"
	"github.com/99minutos/marketing-access/internal/core/service"
	"github.com/99minutos/marketing-access/internal/infrastructure/config"
)

const (
	metricsPath    = "/metrics"
	csrfCookieName = "csrftoken"
	csrfFormField  = "csrfmiddlewaretoken"
)

// Deps carries everything the router wires together.
type Deps struct {
	Config   *config.Config
	RBAC     ports.RBACClient
	Sessions ports.SessionRepository
	// Audit is optional; without it audit events are only logged.
	Audit  ports.AuditRepository
	Health []handler.Dependency
	// Registry defaults to the global Prometheus registry.
	Registry *prometheus.Registry
	Log      zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	cfg := d.Config
	log := d.Log

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	var registerer prometheus.Registerer = prometheus.DefaultRegisterer
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if d.Registry != nil {
		registerer, gatherer = d.Registry, d.Registry
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "marketing_access",
		Registerer: registerer,
		Skipper:    func(c echo.Context) bool { return c.Path() == metricsPath },
	}))

	// --- Dependencies ---
	sessions := session.NewManager(d.Sessions, session.Config{
		CookieName: cfg.Session.CookieName,
		TTL:        cfg.Session.TTL,
		Secure:     cfg.Session.CookieSecure,
		HashKey:    []byte(cfg.Session.HashKey),
		BlockKey:   blockKey(cfg.Session.BlockKey),
	}, log.With().Str("component", "session").Logger())

	var audit middleware.Auditor
	if d.Audit != nil {
		audit = d.Audit
	}

	authService := service.NewAuthService(d.RBAC, log.With().Str("component", "auth").Logger())
	permService := service.NewPermissionService(d.RBAC, log.With().Str("component", "permissions").Logger())
	resolver := service.NewAccessResolver(d.RBAC, service.DefaultSections, log)

	paths := handler.AuthPaths{Login: cfg.Auth.LoginPath, Landing: cfg.Auth.LandingPath}
	guard := middleware.NewGuard(permService, resolver, sessions, audit, middleware.GuardConfig{
		LoginPath:   cfg.Auth.LoginPath,
		LandingPath: cfg.Auth.LandingPath,
	}, log.With().Str("component", "guard").Logger())

	e.Use(middleware.Identity(sessions, audit, middleware.IdentityConfig{
		LoginPath:   cfg.Auth.LoginPath,
		LandingPath: cfg.Auth.LandingPath,
		Exempt:      append(cfg.Exempt(), metricsPath),
	}, log.With().Str("component", "identity").Logger()))

	// --- Auth routes ---
	csrf := csrfProtection(cfg.Session.CookieSecure)
	authHandler := handler.NewAuthHandler(authService, sessions, d.Audit, paths, log)
	e.GET(cfg.Auth.LoginPath, authHandler.LoginPage, csrf)
	e.POST(cfg.Auth.LoginPath, authHandler.Login, csrf)
	e.GET(cfg.Auth.LogoutPath, authHandler.Logout)
	e.POST(cfg.Auth.LogoutPath, authHandler.Logout, csrf)

	profileHandler := handler.NewProfileHandler(authService, resolver, sessions, paths)
	e.GET("/profile/", profileHandler.Profile)
	e.GET("/api/me", profileHandler.Me)

	// --- Sections ---
	sections := handler.NewSectionHandler()
	for _, s := range service.DefaultSections {
		e.GET(s.Path, sections.Show(s), guard.RequireOne(s.Permission, middleware.Operation("view "+s.Name)))
	}
	e.GET("/leads/import/", sections.Show(ports.Section{Name: "Lead import", Path: "/leads/import/"}),
		guard.RequireAll([]domain.Code{domain.PermLeadView, domain.PermLeadImport},
			middleware.RedirectTo("/leads/"), middleware.Operation("import leads")))
	e.GET("/reports/export/", sections.Show(ports.Section{Name: "Report export", Path: "/reports/export/"}),
		guard.RequireAll([]domain.Code{domain.PermReportsView, domain.PermReportsExport},
			middleware.Raise(), middleware.Operation("export report")))
	e.GET("/settings/", sections.Show(ports.Section{Name: "Settings", Path: "/settings/"}),
		guard.RequireAny([]domain.Code{domain.PermSettingsView, domain.PermSettingsEdit},
			middleware.Operation("view settings")))

	if d.Audit != nil {
		auditHandler := handler.NewAuditHandler(d.Audit)
		e.GET("/api/audit/", auditHandler.List,
			guard.RequireOne(domain.PermSettingsView, middleware.API(), middleware.Operation("view audit trail")))
	}

	// --- Health probes and metrics (exempt) ---
	healthHandler := handler.NewHealthHandler(d.Health...)
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)
	e.GET(metricsPath, echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	e.GET("/", func(c echo.Context) error {
		return c.Redirect(http.StatusFound, cfg.Auth.LandingPath)
	})

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Error().Err(v.Error)
			}
			ev.
				Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("user", middleware.CurrentIdentity(c).String()).
				Msg("request")
			return nil
		},
	})
}

// csrfProtection issues a token cookie on safe requests and requires it back,
// in the X-CSRF-Token header or the form field, on unsafe ones.
func csrfProtection(secure bool) echo.MiddlewareFunc {
	return echomiddleware.CSRFWithConfig(echomiddleware.CSRFConfig{
		TokenLookup:    "header:" + echo.HeaderXCSRFToken + ",form:" + csrfFormField,
		ContextKey:     handler.CSRFContextKey,
		CookieName:     csrfCookieName,
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSecure:   secure,
		CookieSameSite: http.SameSiteLaxMode,
	})
}

func blockKey(k string) []byte {
	if k == "" {
		return nil
	}
	return []byte(k)
}
