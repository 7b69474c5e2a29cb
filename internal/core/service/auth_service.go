package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/99minutos/marketing-access/internal/core/domain"
	"github.com/99minutos/marketing-access/internal/core/ports"
)

// AuthService implements login, logout and profile lookups against the
// RBAC authority. It never touches session state.
type AuthService struct {
	client ports.RBACClient
	log    zerolog.Logger
}

func NewAuthService(client ports.RBACClient, log zerolog.Logger) *AuthService {
	return &AuthService{client: client, log: log}
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.SessionPayload, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	payload, err := s.client.Login(ctx, username, password)
	if err != nil {
		s.log.Warn().Err(err).Str("user", username).Msg("login failed")
		return nil, fmt.Errorf("login: %w", err)
	}
	if payload.Info.User == nil || payload.Info.User.Username == "" {
		s.log.Warn().Str("user", username).Msg("login succeeded without a user payload")
		return nil, fmt.Errorf("login: %w", &domain.AuthorityError{
			Op:   "login",
			Kind: domain.FailureMalformed,
			Err:  domain.ErrInvalidIdentity,
		})
	}

	s.log.Info().Str("user", username).Msg("user authenticated")
	return payload, nil
}

// Logout invalidates the token remotely on a best-effort basis and reports
// whether the authority acknowledged it. It never fails: callers clear local
// state regardless.
func (s *AuthService) Logout(ctx context.Context, username, token string) bool {
	if token == "" {
		return false
	}
	if ok := s.client.Logout(ctx, token); !ok {
		s.log.Warn().Str("user", username).Msg("remote logout failed, local session cleared anyway")
		return false
	}
	s.log.Info().Str("user", username).Msg("user logged out")
	return true
}

// Profile returns fresh user info, or nil if the authority could not provide it.
func (s *AuthService) Profile(ctx context.Context, token string) *domain.UserInfo {
	if token == "" {
		return nil
	}
	return s.client.GetUserInfo(ctx, token)
}
