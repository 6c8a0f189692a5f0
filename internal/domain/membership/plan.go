package membership

import (
	"errors"
	"strings"
)

// Plan is a named membership duration tier.
type Plan string

// Plan constants
const (
	PlanMonthly    Plan = "monthly"
	PlanQuarterly  Plan = "quarterly"
	PlanHalfYearly Plan = "half_yearly"
	PlanYearly     Plan = "yearly"
	PlanCustom     Plan = "custom" // expiry date entered by staff
)

// Plans lists the selectable plans in display order.
var Plans = []Plan{PlanMonthly, PlanQuarterly, PlanHalfYearly, PlanYearly, PlanCustom}

// Domain errors
var (
	ErrUnknownPlan = errors.New("plan must be one of: monthly, quarterly, half_yearly, yearly, custom")
	ErrCustomPlan  = errors.New("custom plan has no fixed duration; expiry date is required")
)

// planAliases maps normalised user input to a Plan.
var planAliases = map[string]Plan{
	"monthly":     PlanMonthly,
	"month":       PlanMonthly,
	"1 month":     PlanMonthly,
	"quarterly":   PlanQuarterly,
	"quarter":     PlanQuarterly,
	"3 months":    PlanQuarterly,
	"half_yearly": PlanHalfYearly,
	"half-yearly": PlanHalfYearly,
	"half yearly": PlanHalfYearly,
	"6 months":    PlanHalfYearly,
	"yearly":      PlanYearly,
	"annual":      PlanYearly,
	"annually":    PlanYearly,
	"12 months":   PlanYearly,
	"custom":      PlanCustom,
}

// ParsePlan converts a plan label into a Plan, ignoring case and surrounding space.
// An empty label is PlanCustom: legacy rows carry only start and end dates.
func ParsePlan(label string) (Plan, error) {
	key := strings.ToLower(strings.TrimSpace(label))
	if key == "" {
		return PlanCustom, nil
	}
	p, ok := planAliases[key]
	if !ok {
		return "", ErrUnknownPlan
	}
	return p, nil
}

// Label returns the display label for the plan.
func (p Plan) Label() string {
	switch p {
	case PlanMonthly:
		return "Monthly"
	case PlanQuarterly:
		return "Quarterly"
	case PlanHalfYearly:
		return "Half-Yearly"
	case PlanYearly:
		return "Yearly"
	case PlanCustom:
		return "Custom"
	}
	return string(p)
}

// IsValid reports whether p is one of the known plans.
func (p Plan) IsValid() bool {
	for _, known := range Plans {
		if p == known {
			return true
		}
	}
	return false
}

// offset is the duration of a plan under each policy.
type offset struct {
	months int
	days   int
}

var planOffsets = map[Plan]offset{
	PlanMonthly:    {months: 1, days: 30},
	PlanQuarterly:  {months: 3, days: 90},
	PlanHalfYearly: {months: 6, days: 180},
	PlanYearly:     {months: 12, days: 365},
}
