package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/marketing-access/internal/core/domain"
)

func TestHTTPErrorHandler(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"echo error", echo.NewHTTPError(http.StatusNotFound, "Not Found"), http.StatusNotFound, "Not Found"},
		{"invalid credentials", fmt.Errorf("login: %w", domain.ErrInvalidCredentials), http.StatusBadRequest, "Username and password are required"},
		{"no session", domain.ErrSessionNotFound, http.StatusUnauthorized, "Authentication required"},
		{"denied", domain.ErrPermissionDenied, http.StatusForbidden, "Permission denied"},
		{"timeout", &domain.AuthorityError{Op: "user-info", Kind: domain.FailureTimeout}, http.StatusGatewayTimeout, "The authentication server did not respond in time. Please try again."},
		{"unexpected", errors.New("mongo: connection pool cleared"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		NewHTTPErrorHandler(zerolog.Nop())(tt.err, c)

		if rec.Code != tt.status {
			t.Fatalf("%s: expected %d, got %d", tt.name, tt.status, rec.Code)
		}
		var resp errorResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("%s: invalid json: %v", tt.name, err)
		}
		if resp.Error != tt.msg {
			t.Fatalf("%s: expected %q, got %q", tt.name, tt.msg, resp.Error)
		}
	}
}

func TestHTTPErrorHandler_CommittedResponseUntouched(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	_ = c.String(http.StatusOK, "done")

	NewHTTPErrorHandler(zerolog.Nop())(errors.New("late"), c)

	if rec.Code != http.StatusOK || rec.Body.String() != "done" {
		t.Fatalf("committed response was modified: %d %q", rec.Code, rec.Body.String())
	}
}
