package handler

import (
	"context"
	"net/http/httptest"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/marketing-access/internal/core/domain"
	"github.com/99minutos/marketing-access/internal/core/ports"
)

type stubAuthService struct {
	loginFn  func(ctx context.Context, username, password string) (*domain.SessionPayload, error)
	logoutOK bool
	profile  *domain.UserInfo

	loginCalls  int
	logoutCalls int
	logoutToken string
}

func (s *stubAuthService) Login(ctx context.Context, username, password string) (*domain.SessionPayload, error) {
	s.loginCalls++
	return s.loginFn(ctx, username, password)
}

func (s *stubAuthService) Logout(_ context.Context, _ string, token string) bool {
	s.logoutCalls++
	s.logoutToken = token
	return s.logoutOK
}

func (s *stubAuthService) Profile(context.Context, string) *domain.UserInfo {
	return s.profile
}

type stubSessions struct {
	rec      *domain.SessionRecord
	saveErr  error
	saved    []domain.SessionPayload
	verified []string
	cleared  int
}

func (s *stubSessions) Load(echo.Context) (*domain.SessionRecord, error) {
	if s.rec == nil {
		return nil, domain.ErrSessionNotFound
	}
	return s.rec, nil
}

func (s *stubSessions) LoadToken(c echo.Context) (string, bool) {
	if s.rec == nil || s.rec.Token == "" {
		return "", false
	}
	return s.rec.Token, true
}

func (s *stubSessions) Save(_ echo.Context, p domain.SessionPayload) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, p)
	return nil
}

func (s *stubSessions) Verify(_ echo.Context, token string) bool {
	s.verified = append(s.verified, token)
	return true
}

func (s *stubSessions) Clear(echo.Context) {
	s.cleared++
	s.rec = nil
}

type stubAudit struct {
	events []domain.AuditEvent
	recent []domain.AuditEvent
	query  struct {
		user  string
		limit int64
	}
}

func (a *stubAudit) Record(_ context.Context, e domain.AuditEvent) error {
	a.events = append(a.events, e)
	return nil
}

func (a *stubAudit) Recent(_ context.Context, user string, limit int64) ([]domain.AuditEvent, error) {
	a.query.user = user
	a.query.limit = limit
	return a.recent, nil
}

type stubResolver struct {
	sections []ports.Section
}

func (r *stubResolver) Accessible(context.Context, string) []ports.Section {
	return r.sections
}

var paths = AuthPaths{Login: "/hrms-login/", Landing: "/dashboard/"}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func jsonRequest(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func aliceSession() *domain.SessionRecord {
	return &domain.SessionRecord{
		Token:    "abc123",
		Username: "alice",
		UserInfo: &domain.UserInfo{
			User:        &domain.User{Username: "alice", FirstName: "Alice"},
			Permissions: []domain.Grant{{Code: domain.PermLeadView}, {Code: domain.PermCampaignView}},
		},
	}
}
