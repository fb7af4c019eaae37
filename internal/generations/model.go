package generations

import "time"

const (
	// AnonymousEmail is recorded when the request carried no known user.
	AnonymousEmail = "Anonymous"

	StatusSuccess = "SUCCESS"
)

// Entry is one append-only generation log record. UserID is empty for anonymous
// requests and stored as NULL.
type Entry struct {
	ID               string    `json:"id"`
	UserID           string    `json:"userId,omitempty"`
	UserEmail        string    `json:"userEmail"`
	JobTitle         string    `json:"jobTitle"`
	CompanyName      string    `json:"companyName"`
	MatchScore       int       `json:"matchScore"`
	OriginalFileName string    `json:"originalFileName"`
	Status           string    `json:"status"`
	AnalysisOutcome  string    `json:"analysisOutcome"`
	RenderOutcome    string    `json:"renderOutcome"`
	StorageKey       string    `json:"-"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Archived reports whether the output document can be downloaded.
func (e Entry) Archived() bool { return e.StorageKey != "" }
