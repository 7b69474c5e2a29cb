package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/99minutos/marketing-access/internal/core/domain"
	"github.com/99minutos/marketing-access/internal/core/ports"
)

// DefaultSections is the landing table, in preference order.
var DefaultSections = []ports.Section{
	{Name: "Dashboard", Path: "/dashboard/", Permission: domain.PermCampaignView},
	{Name: "Customers", Path: "/customers/", Permission: domain.PermCustomerView},
	{Name: "Leads", Path: "/leads/", Permission: domain.PermLeadView},
	{Name: "Visits", Path: "/visits/", Permission: domain.PermVisitView},
	{Name: "Reports", Path: "/reports/", Permission: domain.PermReportsView},
}

type accessResolver struct {
	client   ports.RBACClient
	sections []ports.Section
	log      zerolog.Logger
}

// NewAccessResolver evaluates sections with a single batch call. A nil or
// empty table falls back to DefaultSections.
func NewAccessResolver(client ports.RBACClient, sections []ports.Section, log zerolog.Logger) ports.AccessResolver {
	if len(sections) == 0 {
		sections = DefaultSections
	}
	return &accessResolver{client: client, sections: sections, log: log}
}

func (r *accessResolver) Accessible(ctx context.Context, token string) []ports.Section {
	if token == "" {
		return nil
	}

	codes := make([]domain.Code, 0, len(r.sections))
	seen := make(map[domain.Code]struct{}, len(r.sections))
	for _, s := range r.sections {
		if _, ok := seen[s.Permission]; ok {
			continue
		}
		seen[s.Permission] = struct{}{}
		codes = append(codes, s.Permission)
	}

	results, err := r.client.CheckPermissions(ctx, token, codes)
	if err != nil {
		r.log.Warn().Err(err).Msg("could not resolve accessible sections")
		return nil
	}

	var out []ports.Section
	for _, s := range r.sections {
		if results[s.Permission] {
			out = append(out, s)
		}
	}
	return out
}
