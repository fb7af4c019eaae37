package analysis

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var schemaJSON string

var (
	fencePattern = regexp.MustCompile("```json|```")
	schema       = mustSchema()

	ErrEmptyResponse = errors.New("empty response")
)

func mustSchema() *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		panic(fmt.Sprintf("analysis schema: %v", err))
	}
	return s
}

// SchemaError lists the schema violations of a response.
type SchemaError struct {
	Violations []string
}

func (e *SchemaError) Error() string {
	return "response does not match schema: " + strings.Join(e.Violations, "; ")
}

// Parse turns raw service text into an Outcome. It never fails: anything that
// is not a conforming JSON object yields the degraded result.
func Parse(raw string) Outcome {
	result, err := parse(raw)
	if err != nil {
		return Outcome{Kind: KindDegraded, Result: Degraded(), Reason: err}
	}
	return Outcome{Kind: KindParsed, Result: result}
}

// StripFences removes markdown code fence markers and surrounding whitespace.
func StripFences(raw string) string {
	return strings.TrimSpace(fencePattern.ReplaceAllString(raw, ""))
}

func parse(raw string) (Result, error) {
	cleaned := StripFences(raw)
	if cleaned == "" {
		return Result{}, ErrEmptyResponse
	}

	var doc any
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return Result{}, fmt.Errorf("decode json: %w", err)
	}

	res, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return Result{}, fmt.Errorf("validate: %w", err)
	}
	if !res.Valid() {
		violations := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			violations = append(violations, e.String())
		}
		return Result{}, &SchemaError{Violations: violations}
	}

	obj := doc.(map[string]any)
	out := Result{Replacements: map[string]string{}}
	if score, ok := obj["matchScore"].(float64); ok {
		out.MatchScore = clampToInt(score)
	}
	if s, ok := obj["resumeSummary"].(string); ok {
		out.ResumeSummary = s
	}
	out.MissingKeywords = stringList(obj["missingKeywords"])
	out.InsightsAndRecommendations = stringList(obj["insightsAndRecommendations"])
	if repl, ok := obj["replacements"].(map[string]any); ok {
		for k, v := range repl {
			out.Replacements[k] = scalarString(v)
		}
	}
	return out, nil
}

func clampToInt(f float64) int {
	if math.IsNaN(f) {
		return 0
	}
	r := math.Round(f)
	if r > math.MaxInt32 {
		return math.MaxInt32
	}
	if r < math.MinInt32 {
		return math.MinInt32
	}
	return int(r)
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}
