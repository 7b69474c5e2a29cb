package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/marketing-access/internal/api/metrics"
	"github.com/99minutos/marketing-access/internal/api/middleware"
	"github.com/99minutos/marketing-access/internal/core/domain"
	"github.com/99minutos/marketing-access/internal/core/ports"
)

type AuthPaths struct {
	Login   string
	Landing string
}

type AuthHandler struct {
	authService ports.AuthService
	sessions    Sessions
	audit       auditRecorder
	paths       AuthPaths
	log         zerolog.Logger
}

func NewAuthHandler(authService ports.AuthService, sessions Sessions, audit auditRecorder, paths AuthPaths, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		sessions:    sessions,
		audit:       audit,
		paths:       paths,
		log:         log,
	}
}

type loginRequest struct {
	Username string `json:"username" form:"username" validate:"required,max=150"`
	Password string `json:"password" form:"password" validate:"required,max=256"`
}

type loginPageResponse struct {
	Action string `json:"action"`
	Next   string `json:"next"`
	// CSRF must be echoed back on the login POST.
	CSRF string `json:"csrf,omitempty"`
}

// CSRFContextKey is where the CSRF middleware leaves the request token.
const CSRFContextKey = "csrf"

const missingCredentials = "Username and password are required"

// LoginPage answers GET on the login path. Signed-in users go straight to
// their destination.
//
// @Summary      Login page descriptor
// @Tags         auth
// @Produce      json
// @Param        next  query     string  false  "Path to return to after login"
// @Success      200   {object}  loginPageResponse
// @Success      302   "Already signed in"
// @Router       /hrms-login/ [get]
func (h *AuthHandler) LoginPage(c echo.Context) error {
	next := middleware.SafeNext(c.QueryParam("next"), h.paths.Login, h.paths.Landing)
	if middleware.CurrentIdentity(c).Authenticated() {
		return c.Redirect(http.StatusFound, next)
	}
	token, _ := c.Get(CSRFContextKey).(string)
	return c.JSON(http.StatusOK, loginPageResponse{Action: h.paths.Login, Next: next, CSRF: token})
}

// Login exchanges credentials with the authority, stores the session and
// redirects to the sanitised next target.
//
// @Summary      Login
// @Tags         auth
// @Accept       json,x-www-form-urlencoded
// @Produce      json
// @Param        body  body      loginRequest  true   "Login credentials"
// @Param        next  query     string        false  "Path to return to after login"
// @Success      303   "Session started"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Failure      504   {object}  map[string]string
// @Router       /hrms-login/ [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("invalid_input").Inc()
		return c.JSON(http.StatusBadRequest, map[string]string{"error": missingCredentials})
	}
	if err := c.Validate(&req); err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("invalid_input").Inc()
		return c.JSON(http.StatusBadRequest, map[string]string{"error": missingCredentials})
	}

	ctx := c.Request().Context()
	payload, err := h.authService.Login(ctx, req.Username, req.Password)
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues(loginResult(err)).Inc()
		h.record(c, domain.AuditEvent{Action: domain.AuditLoginFailed, Username: req.Username, Reason: err.Error()})
		return c.JSON(domain.LoginFailureStatus(err), map[string]string{"error": domain.LoginFailureMessage(err)})
	}

	if err := h.sessions.Save(c, *payload); err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("session_error").Inc()
		h.log.Error().Err(err).Str("user", req.Username).Msg("could not store session after login")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Could not start session. Please try again."})
	}
	h.sessions.Verify(c, payload.Token)

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	h.record(c, domain.AuditEvent{Action: domain.AuditLoginSucceeded, Username: payload.Info.User.Username})

	next := c.QueryParam("next")
	if next == "" {
		next = c.FormValue("next")
	}
	return c.Redirect(http.StatusSeeOther, middleware.SafeNext(next, h.paths.Login, h.paths.Landing))
}

// Logout invalidates the token remotely when possible and always clears the
// local session.
//
// @Summary      Logout
// @Tags         auth
// @Success      302  "Redirect to the login page"
// @Router       /hrms-logout/ [get]
// @Router       /hrms-logout/ [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	user := middleware.CurrentIdentity(c)
	token, _ := h.sessions.LoadToken(c)

	remote := "failed"
	if h.authService.Logout(c.Request().Context(), user.Username(), token) {
		remote = "ok"
	}
	h.sessions.Clear(c)

	metrics.LogoutsTotal.WithLabelValues(remote).Inc()
	h.record(c, domain.AuditEvent{Action: domain.AuditLogout, Username: user.String(), Reason: "remote " + remote})

	return c.Redirect(http.StatusFound, h.paths.Login)
}

func (h *AuthHandler) record(c echo.Context, e domain.AuditEvent) {
	if h.audit == nil {
		return
	}
	e.Path = c.Request().URL.Path
	e.RequestID = requestID(c)
	e.At = time.Now()
	if err := h.audit.Record(c.Request().Context(), e); err != nil {
		h.log.Error().Err(err).Str("action", string(e.Action)).Msg("audit write failed")
	}
}

func loginResult(err error) string {
	var ae *domain.AuthorityError
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_input"
	case errors.As(err, &ae):
		return ae.Kind.String()
	default:
		return "error"
	}
}
