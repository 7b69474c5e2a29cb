package ports

import (
	"context"

	"github.com/99minutos/marketing-access/internal/core/domain"
)

// Section is a top-level application area gated by a single permission.
type Section struct {
	Name       string      `json:"name"`
	Path       string      `json:"path"`
	Permission domain.Code `json:"permission"`
}

// PermissionService applies the fail-closed policy on top of the RBAC client.
type PermissionService interface {
	Check(ctx context.Context, token string, code domain.Code) domain.Decision
	CheckAny(ctx context.Context, token string, codes []domain.Code) domain.Decision
	CheckAll(ctx context.Context, token string, codes []domain.Code) domain.Decision
}

// AccessResolver lists the sections a token can reach. It never grants access.
type AccessResolver interface {
	Accessible(ctx context.Context, token string) []Section
}
