package ports

import (
	"context"

	"github.com/99minutos/marketing-access/internal/core/domain"
)

// AuditRepository stores the auth audit trail.
type AuditRepository interface {
	Record(ctx context.Context, event domain.AuditEvent) error
	// Recent returns up to limit events, newest first. An empty username
	// matches every user.
	Recent(ctx context.Context, username string, limit int64) ([]domain.AuditEvent, error)
}
