package users

import "time"

// Plans known to the quota rules. Any other value is treated like PlanFree.
const (
	PlanFree = "FREE"
	PlanPro  = "PRO"
)

// User is the slice of the account record this service reads: identity plus
// the plan and the lifetime credit counter.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Plan        string    `json:"plan"`
	CreditsUsed int       `json:"creditsUsed"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
