package ports

import (
	"context"
	"time"

	"github.com/99minutos/marketing-access/internal/core/domain"
)

// SessionRepository persists session records keyed by an opaque session id.
type SessionRepository interface {
	Save(ctx context.Context, id string, rec domain.SessionRecord, ttl time.Duration) error
	// Get returns domain.ErrSessionNotFound for unknown or expired ids.
	Get(ctx context.Context, id string) (*domain.SessionRecord, error)
	Touch(ctx context.Context, id string, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}
