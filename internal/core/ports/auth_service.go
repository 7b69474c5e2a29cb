package ports

import (
	"context"

	"github.com/99minutos/marketing-access/internal/core/domain"
)

type AuthService interface {
	Login(ctx context.Context, username, password string) (*domain.SessionPayload, error)
	// Logout reports whether the authority acknowledged the invalidation.
	Logout(ctx context.Context, username, token string) bool
	Profile(ctx context.Context, token string) *domain.UserInfo
}
