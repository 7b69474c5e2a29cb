package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/marketing-access/internal/core/domain"
	"github.com/99minutos/marketing-access/internal/core/ports"
)

type AuditHandler struct {
	repo ports.AuditRepository
}

func NewAuditHandler(repo ports.AuditRepository) *AuditHandler {
	return &AuditHandler{repo: repo}
}

type auditQuery struct {
	User  string `query:"user" json:"user" validate:"max=150"`
	Limit int64  `query:"limit" json:"limit" validate:"gte=0,lte=500"`
}

type auditEntry struct {
	Action      string        `json:"action"`
	Username    string        `json:"username"`
	Operation   string        `json:"operation,omitempty"`
	Path        string        `json:"path,omitempty"`
	Permissions []domain.Code `json:"permissions,omitempty"`
	Reason      string        `json:"reason,omitempty"`
	RequestID   string        `json:"request_id,omitempty"`
	At          string        `json:"at"`
}

const defaultAuditLimit = 50

// List returns recent auth events, newest first, optionally for one user.
//
// @Summary      List auth audit events
// @Tags         audit
// @Produce      json
// @Param        user   query     string  false  "Filter by username"
// @Param        limit  query     int     false  "Maximum events (1-500, default 50)"
// @Success      200    {array}   auditEntry
// @Failure      400    {object}  map[string]string
// @Failure      401    {object}  map[string]string
// @Failure      403    {object}  map[string]string
// @Failure      500    {object}  map[string]string
// @Router       /api/audit/ [get]
func (h *AuditHandler) List(c echo.Context) error {
	var q auditQuery
	if err := c.Bind(&q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query")
	}
	if err := c.Validate(&q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if q.Limit == 0 {
		q.Limit = defaultAuditLimit
	}

	events, err := h.repo.Recent(c.Request().Context(), q.User, q.Limit)
	if err != nil {
		return err
	}

	out := make([]auditEntry, 0, len(events))
	for _, e := range events {
		out = append(out, auditEntry{
			Action:      string(e.Action),
			Username:    e.Username,
			Operation:   e.Operation,
			Path:        e.Path,
			Permissions: e.Permissions,
			Reason:      e.Reason,
			RequestID:   e.RequestID,
			At:          e.At.UTC().Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"events": out})
}
