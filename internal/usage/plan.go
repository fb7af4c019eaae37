package usage

import "jobfit-backend/internal/users"

// Lifetime generation ceilings per plan.
const (
	FreeCeiling = 5
	ProCeiling  = 20
)

// Ceiling returns the generation limit for a plan. Only the exact PRO plan gets
// the higher limit; everything else gets the free one.
func Ceiling(plan string) int {
	if plan == users.PlanPro {
		return ProCeiling
	}
	return FreeCeiling
}

// Usage is the quota snapshot served to the dashboard.
type Usage struct {
	Plan        string `json:"plan"`
	CreditsUsed int    `json:"creditsUsed"`
	Limit       int    `json:"limit"`
}
