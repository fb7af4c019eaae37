package usage

import "fmt"

// QuotaExceededError reports that the caller has used every credit of their plan.
type QuotaExceededError struct {
	Ceiling int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("You have reached your limit of %d resumes. Please upgrade to Pro.", e.Ceiling)
}
