package ports

import (
	"context"

	"github.com/99minutos/marketing-access/internal/core/domain"
)

// RBACClient is the only path to the remote authority. Every call takes the
// caller's token explicitly; implementations hold no per-user state.
type RBACClient interface {
	Login(ctx context.Context, username, password string) (*domain.SessionPayload, error)
	CheckPermission(ctx context.Context, token string, code domain.Code) (bool, error)
	CheckPermissions(ctx context.Context, token string, codes []domain.Code) (map[domain.Code]bool, error)
	// GetUserInfo is fail-soft: nil on any failure.
	GetUserInfo(ctx context.Context, token string) *domain.UserInfo
	// Logout is best-effort and reports whether the authority acknowledged it.
	Logout(ctx context.Context, token string) bool
}
