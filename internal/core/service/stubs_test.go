package service

import (
	"context"

	"github.com/99minutos/marketing-access/internal/core/domain"
)

type stubRBACClient struct {
	loginFn     func(ctx context.Context, username, password string) (*domain.SessionPayload, error)
	checkFn     func(ctx context.Context, token string, code domain.Code) (bool, error)
	checkManyFn func(ctx context.Context, token string, codes []domain.Code) (map[domain.Code]bool, error)
	userInfo    *domain.UserInfo
	logoutOK    bool

	batchCalls  int
	logoutCalls int
}

func (s *stubRBACClient) Login(ctx context.Context, username, password string) (*domain.SessionPayload, error) {
	return s.loginFn(ctx, username, password)
}

func (s *stubRBACClient) CheckPermission(ctx context.Context, token string, code domain.Code) (bool, error) {
	return s.checkFn(ctx, token, code)
}

func (s *stubRBACClient) CheckPermissions(ctx context.Context, token string, codes []domain.Code) (map[domain.Code]bool, error) {
	s.batchCalls++
	return s.checkManyFn(ctx, token, codes)
}

func (s *stubRBACClient) GetUserInfo(_ context.Context, _ string) *domain.UserInfo {
	return s.userInfo
}

func (s *stubRBACClient) Logout(_ context.Context, _ string) bool {
	s.logoutCalls++
	return s.logoutOK
}

func timeoutErr(op string) error {
	return &domain.AuthorityError{Op: op, Kind: domain.FailureTimeout, Err: context.DeadlineExceeded}
}
