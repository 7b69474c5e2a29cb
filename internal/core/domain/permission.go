package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Code is a dotted permission key such as "marketing.campaign.view". The
// authority owns its meaning; it is opaque here.
type Code string

// Marketing permission catalogue.
const (
	PermCampaignView   Code = "marketing.campaign.view"
	PermCampaignCreate Code = "marketing.campaign.create"
	PermCampaignEdit   Code = "marketing.campaign.edit"
	PermCampaignDelete Code = "marketing.campaign.delete"

	PermLeadView   Code = "marketing.lead.view"
	PermLeadCreate Code = "marketing.lead.create"
	PermLeadEdit   Code = "marketing.lead.edit"
	PermLeadDelete Code = "marketing.lead.delete"
	PermLeadImport Code = "marketing.lead.import"

	PermCustomerView   Code = "marketing.customer.view"
	PermCustomerCreate Code = "marketing.customer.create"
	PermCustomerEdit   Code = "marketing.customer.edit"
	PermCustomerDelete Code = "marketing.customer.delete"
	PermCustomerImport Code = "marketing.customer.import"

	PermVisitView   Code = "marketing.visit.view"
	PermVisitCreate Code = "marketing.visit.create"
	PermVisitEdit   Code = "marketing.visit.edit"
	PermVisitDelete Code = "marketing.visit.delete"

	PermReportsView   Code = "marketing.reports.view"
	PermReportsExport Code = "marketing.reports.export"

	PermSettingsView Code = "marketing.settings.view"
	PermSettingsEdit Code = "marketing.settings.edit"
)

// JoinCodes renders codes the way denial payloads and logs show them.
func JoinCodes(codes []Code) string {
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = string(c)
	}
	return strings.Join(parts, ", ")
}

// Decision is the three-state outcome of a permission check.
type Decision int

const (
	// DecisionUnknown means the authority could not answer. It is never a grant.
	DecisionUnknown Decision = iota
	DecisionDenied
	DecisionGranted
)

// DecisionOf converts a well-formed authority answer.
func DecisionOf(granted bool) Decision {
	if granted {
		return DecisionGranted
	}
	return DecisionDenied
}

// Allowed is true only for DecisionGranted.
func (d Decision) Allowed() bool { return d == DecisionGranted }

func (d Decision) String() string {
	switch d {
	case DecisionGranted:
		return "granted"
	case DecisionDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// Grant is one entry of a permission snapshot. The authority sends either a
// bare code string or an object with code and name.
type Grant struct {
	Code Code   `json:"code"`
	Name string `json:"name,omitempty"`
}

func (g *Grant) UnmarshalJSON(data []byte) error {
	var code string
	if err := json.Unmarshal(data, &code); err == nil {
		g.Code = Code(code)
		g.Name = ""
		return nil
	}

	type plain Grant
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("permission grant: %w", err)
	}
	*g = Grant(p)
	return nil
}
