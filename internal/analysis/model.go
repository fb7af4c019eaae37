package analysis

// Result is the structured analysis the generative service is asked to produce.
type Result struct {
	MatchScore                 int               `json:"matchScore"`
	ResumeSummary              string            `json:"resumeSummary,omitempty"`
	MissingKeywords            []string          `json:"missingKeywords,omitempty"`
	InsightsAndRecommendations []string          `json:"insightsAndRecommendations,omitempty"`
	Replacements               map[string]string `json:"replacements"`
}

// Degraded is the neutral result used when a response cannot be interpreted.
func Degraded() Result {
	return Result{MatchScore: 0, Replacements: map[string]string{}}
}

// Kind tags how a Result was obtained.
type Kind string

const (
	KindParsed   Kind = "parsed"
	KindDegraded Kind = "degraded"
)

// Outcome is the parser's answer: either a parsed Result or the degraded one with a reason.
type Outcome struct {
	Kind   Kind
	Result Result
	Reason error
}

func (o Outcome) IsDegraded() bool { return o.Kind == KindDegraded }
