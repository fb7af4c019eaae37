package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"jobfit-backend/internal/llm"
	"jobfit-backend/internal/shared/metrics"
	"jobfit-backend/internal/shared/telemetry"
)

const DefaultModel = "gemini-flash-latest"

// Options configures the Gemini client. BaseURL is only set for tests and proxies.
type Options struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Client implements llm.Client using the Gemini generateContent API.
type Client struct {
	genai *genai.Client
	model string
}

// NewClient constructs a new Gemini client.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, llm.ErrNotConfigured
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	cfg := &genai.ClientConfig{
		APIKey:     opts.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeout},
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	gc, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{genai: gc, model: model}, nil
}

// safetySettings turns off blocking for every harm category.
func safetySettings() []*genai.SafetySetting {
	categories := []genai.HarmCategory{
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryDangerousContent,
	}
	out := make([]*genai.SafetySetting, 0, len(categories))
	for _, c := range categories {
		out = append(out, &genai.SafetySetting{Category: c, Threshold: genai.HarmBlockThresholdBlockNone})
	}
	return out
}

// Generate sends the prompt and returns the text of the first candidate.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	resp, err := c.genai.Models.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
		SafetySettings: safetySettings(),
	})
	metrics.ObserveUpstreamDurationMs(float64(time.Since(start).Microseconds()) / 1000.0)
	if err != nil {
		return "", toUpstreamError(err)
	}

	text := firstCandidateText(resp)
	logUsage(c.model, resp)
	return text, nil
}

func firstCandidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range cand.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String()
}

func toUpstreamError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &llm.UpstreamServiceError{StatusCode: apiErr.Code, Status: apiErr.Status, Message: apiErr.Message, Err: err}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &llm.UpstreamServiceError{StatusCode: apiErrPtr.Code, Status: apiErrPtr.Status, Message: apiErrPtr.Message, Err: err}
	}
	return &llm.UpstreamServiceError{Message: err.Error(), Err: err}
}

func logUsage(model string, resp *genai.GenerateContentResponse) {
	fields := map[string]any{"model": model}
	if resp != nil && resp.UsageMetadata != nil {
		fields["prompt_tokens"] = resp.UsageMetadata.PromptTokenCount
		fields["completion_tokens"] = resp.UsageMetadata.CandidatesTokenCount
		fields["total_tokens"] = resp.UsageMetadata.TotalTokenCount
	}
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0] != nil {
		fields["finish_reason"] = string(resp.Candidates[0].FinishReason)
	}
	telemetry.Info("llm.response", fields)
}

var _ llm.Client = (*Client)(nil)
