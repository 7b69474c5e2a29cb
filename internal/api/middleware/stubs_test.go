package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/marketing-access/internal/core/domain"
	"github.com/99minutos/marketing-access/internal/core/ports"
)

type stubSessions struct {
	rec     *domain.SessionRecord
	err     error
	touched int
	cleared int
}

func (s *stubSessions) Load(echo.Context) (*domain.SessionRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.rec == nil {
		return nil, domain.ErrSessionNotFound
	}
	return s.rec, nil
}

func (s *stubSessions) LoadToken(c echo.Context) (string, bool) {
	rec, err := s.Load(c)
	if err != nil || rec.Token == "" {
		return "", false
	}
	return rec.Token, true
}

func (s *stubSessions) Touch(echo.Context) { s.touched++ }
func (s *stubSessions) Clear(echo.Context) { s.cleared++ }

type stubAuditor struct {
	events []domain.AuditEvent
}

func (a *stubAuditor) Record(_ context.Context, e domain.AuditEvent) error {
	a.events = append(a.events, e)
	return nil
}

// stubRBAC answers permission checks from a fixed grant table or fails with err.
type stubRBAC struct {
	grants map[domain.Code]bool
	err    error
	calls  int
}

func (s *stubRBAC) Login(context.Context, string, string) (*domain.SessionPayload, error) {
	return nil, domain.ErrInvalidCredentials
}

func (s *stubRBAC) CheckPermission(_ context.Context, _ string, code domain.Code) (bool, error) {
	s.calls++
	if s.err != nil {
		return false, s.err
	}
	return s.grants[code], nil
}

func (s *stubRBAC) CheckPermissions(_ context.Context, _ string, codes []domain.Code) (map[domain.Code]bool, error) {
	s.calls++
	out := make(map[domain.Code]bool, len(codes))
	if s.err != nil {
		return out, s.err
	}
	for _, c := range codes {
		out[c] = s.grants[c]
	}
	return out, nil
}

func (s *stubRBAC) GetUserInfo(context.Context, string) *domain.UserInfo { return nil }
func (s *stubRBAC) Logout(context.Context, string) bool { return true }

var _ ports.RBACClient = (*stubRBAC)(nil)

func aliceRecord() *domain.SessionRecord {
	rec := domain.NewSessionRecord(domain.SessionPayload{
		Token: "abc123",
		Info: domain.UserInfo{
			User: &domain.User{Username: "alice", FirstName: "Alice"},
		},
	}, time.Now())
	return &rec
}

func newRequest(method, target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func okHandler(called *bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		*called = true
		return c.NoContent(http.StatusOK)
	}
}
