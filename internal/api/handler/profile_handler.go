package handler

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/marketing-access/internal/api/middleware"
	"github.com/99minutos/marketing-access/internal/core/domain"
	"github.com/99minutos/marketing-access/internal/core/ports"
)

type ProfileHandler struct {
	authService ports.AuthService
	resolver    ports.AccessResolver
	sessions    Sessions
	paths       AuthPaths
}

func NewProfileHandler(authService ports.AuthService, resolver ports.AccessResolver, sessions Sessions, paths AuthPaths) *ProfileHandler {
	return &ProfileHandler{
		authService: authService,
		resolver:    resolver,
		sessions:    sessions,
		paths:       paths,
	}
}

type profileResponse struct {
	User            *domain.User    `json:"user"`
	Employee        json.RawMessage `json:"employee,omitempty"`
	Roles           []domain.Role   `json:"roles"`
	Permissions     []domain.Grant  `json:"permissions"`
	PermissionCount int             `json:"permission_count"`
}

type meUser struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
	IsActive    bool   `json:"is_active"`
	IsStaff     bool   `json:"is_staff"`
	IsSuperuser bool   `json:"is_superuser"`
}

type meResponse struct {
	User        meUser          `json:"user"`
	Employee    json.RawMessage `json:"employee,omitempty"`
	Permissions []domain.Code   `json:"permissions"`
	Sections    []ports.Section `json:"sections"`
}

// Profile renders fresh user info from the authority. When the authority
// cannot provide it the user is sent back to login.
//
// @Summary      Current user profile
// @Tags         profile
// @Produce      json
// @Success      200  {object}  profileResponse
// @Success      302  "Redirect to login"
// @Router       /profile/ [get]
func (h *ProfileHandler) Profile(c echo.Context) error {
	token, ok := h.sessions.LoadToken(c)
	if !ok {
		return c.Redirect(http.StatusFound, middleware.LoginURL(h.paths.Login, h.paths.Landing, c.Request().URL.RequestURI()))
	}

	info := h.authService.Profile(c.Request().Context(), token)
	if info == nil || info.User == nil {
		return c.Redirect(http.StatusFound, h.paths.Login)
	}

	count := info.PermissionCount
	if count == 0 {
		count = len(info.Permissions)
	}
	return c.JSON(http.StatusOK, profileResponse{
		User:            info.User,
		Employee:        info.Employee,
		Roles:           nonNil(info.Roles),
		Permissions:     nonNil(info.Permissions),
		PermissionCount: count,
	})
}

// Me describes the signed-in user for page chrome: identity, the permission
// snapshot taken at login, and the sections the user can open. The snapshot
// is informational; guards always ask the authority.
//
// @Summary      Signed-in user summary
// @Tags         profile
// @Produce      json
// @Success      200  {object}  meResponse
// @Failure      401  {object}  map[string]string
// @Router       /api/me [get]
func (h *ProfileHandler) Me(c echo.Context) error {
	id, err := currentUser(c)
	if err != nil {
		return err
	}

	var perms []domain.Code
	if rec, err := h.sessions.Load(c); err == nil && rec.UserInfo != nil {
		perms = rec.UserInfo.PermissionCodes()
	}

	var sections []ports.Section
	if token, ok := h.sessions.LoadToken(c); ok {
		sections = h.resolver.Accessible(c.Request().Context(), token)
	}

	return c.JSON(http.StatusOK, meResponse{
		User: meUser{
			ID:          id.ID(),
			Username:    id.Username(),
			DisplayName: id.DisplayName(),
			Email:       id.Email(),
			IsActive:    id.IsActive(),
			IsStaff:     id.IsStaff(),
			IsSuperuser: id.IsSuperuser(),
		},
		Employee:    id.Employee(),
		Permissions: nonNil(perms),
		Sections:    nonNil(sections),
	})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
