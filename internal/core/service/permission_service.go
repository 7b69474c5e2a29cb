package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/99minutos/marketing-access/internal/core/domain"
	"github.com/99minutos/marketing-access/internal/core/ports"
)

type permissionService struct {
	client ports.RBACClient
	log    zerolog.Logger
}

// NewPermissionService returns a PermissionService that folds every
// authority failure into a non-granting decision.
func NewPermissionService(client ports.RBACClient, log zerolog.Logger) ports.PermissionService {
	return &permissionService{client: client, log: log}
}

func (s *permissionService) Check(ctx context.Context, token string, code domain.Code) domain.Decision {
	if token == "" {
		return domain.DecisionDenied
	}

	granted, err := s.client.CheckPermission(ctx, token, code)
	if err != nil {
		s.logFailure(err, []domain.Code{code})
		return domain.DecisionUnknown
	}
	return domain.DecisionOf(granted)
}

func (s *permissionService) CheckAny(ctx context.Context, token string, codes []domain.Code) domain.Decision {
	results, err := s.batch(ctx, token, codes)
	if err != nil {
		return domain.DecisionUnknown
	}
	for _, code := range codes {
		if results[code] {
			return domain.DecisionGranted
		}
	}
	return domain.DecisionDenied
}

func (s *permissionService) CheckAll(ctx context.Context, token string, codes []domain.Code) domain.Decision {
	results, err := s.batch(ctx, token, codes)
	if err != nil {
		return domain.DecisionUnknown
	}
	for _, code := range codes {
		if !results[code] {
			return domain.DecisionDenied
		}
	}
	return domain.DecisionGranted
}

// batch returns an all-false map alongside any error, so a caller that
// ignores the error still cannot read a grant out of it.
func (s *permissionService) batch(ctx context.Context, token string, codes []domain.Code) (map[domain.Code]bool, error) {
	if token == "" || len(codes) == 0 {
		return denyAll(codes), errNothingToCheck
	}

	results, err := s.client.CheckPermissions(ctx, token, codes)
	if err != nil {
		s.logFailure(err, codes)
		return denyAll(codes), err
	}
	return results, nil
}

var errNothingToCheck = errors.New("no token or no permission codes")

func denyAll(codes []domain.Code) map[domain.Code]bool {
	out := make(map[domain.Code]bool, len(codes))
	for _, c := range codes {
		out[c] = false
	}
	return out
}

func (s *permissionService) logFailure(err error, codes []domain.Code) {
	reason := "permission check error"
	switch {
	case errors.Is(err, domain.ErrAuthorityTimeout):
		reason = "authority timed out during permission check"
	case errors.Is(err, domain.ErrAuthorityUnreachable):
		reason = "authority unavailable for permission check"
	case errors.Is(err, domain.ErrMalformedResponse):
		reason = "malformed permission check response"
	}
	s.log.Error().Err(err).Str("permissions", domain.JoinCodes(codes)).Msg(reason)
}
