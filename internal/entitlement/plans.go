package entitlement

import (
	"fmt"
	"sort"
	"strings"
)

// Unlimited marks a plan without a render quota.
const Unlimited = -1

// Plan is one subscription tier.
type Plan struct {
	ID               string `json:"id"`
	RendersPerPeriod int    `json:"rendersPerPeriod"`
	MaxSourceMinutes int    `json:"maxSourceMinutes"`
	ExportQuality    string `json:"exportQuality"`
}

// Limited reports whether the plan has a render quota.
func (p Plan) Limited() bool { return p.RendersPerPeriod != Unlimited }

var plans = map[string]Plan{
	"free":    {ID: "free", RendersPerPeriod: 12, MaxSourceMinutes: 10, ExportQuality: "720p"},
	"starter": {ID: "starter", RendersPerPeriod: 20, MaxSourceMinutes: 30, ExportQuality: "1080p"},
	"creator": {ID: "creator", RendersPerPeriod: 100, MaxSourceMinutes: 120, ExportQuality: "4k"},
	"studio":  {ID: "studio", RendersPerPeriod: Unlimited, MaxSourceMinutes: 999, ExportQuality: "4k"},
}

// LookupPlan returns the plan with the given id.
func LookupPlan(id string) (Plan, error) {
	plan, ok := plans[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return Plan{}, fmt.Errorf("unknown plan %q", id)
	}
	return plan, nil
}

// Plans lists every tier, smallest quota first with unlimited last.
func Plans() []Plan {
	out := make([]Plan, 0, len(plans))
	for _, plan := range plans {
		out = append(out, plan)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Limited() != b.Limited() {
			return a.Limited()
		}
		return a.RendersPerPeriod < b.RendersPerPeriod
	})
	return out
}
