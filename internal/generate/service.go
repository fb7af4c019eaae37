package generate

import (
	"context"
	"time"

	"jobfit-backend/internal/analysis"
	"jobfit-backend/internal/extract"
	"jobfit-backend/internal/generations"
	"jobfit-backend/internal/llm"
	"jobfit-backend/internal/shared/metrics"
	"jobfit-backend/internal/shared/telemetry"
	"jobfit-backend/internal/usage"
	"jobfit-backend/resume/contract"
	"jobfit-backend/resume/render"
)

// Result is what a successful generation hands back to the transport layer.
type Result struct {
	GenerationID    string
	Analysis        analysis.Result
	AnalysisOutcome analysis.Kind
	RenderOutcome   render.Kind
	Document        []byte
	FileName        string
}

// Service runs the generation pipeline.
type Service struct {
	LLM      llm.Client
	Quota    *usage.Enforcer
	Recorder *generations.Service
}

// NewService constructs a Service.
func NewService(client llm.Client, quota *usage.Enforcer, recorder *generations.Service) *Service {
	return &Service{LLM: client, Quota: quota, Recorder: recorder}
}

// Generate validates the request, checks the caller's quota, asks the
// generative service for an analysis, renders it into the uploaded document,
// then consumes one credit and records the outcome.
//
// Errors: *ValidationError, *usage.QuotaExceededError, *llm.UpstreamServiceError,
// or a store failure while loading the caller. Parse and render problems degrade
// instead of failing.
func (s *Service) Generate(ctx context.Context, req Request) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}

	subject, err := s.Quota.Check(ctx, req.UserID)
	if err != nil {
		return Result{}, err
	}

	metrics.IncGenerationStarted()
	text := extract.TextFromDocument(ctx, req.Document, req.FileName)
	prompt := llm.BuildAnalysisPrompt(llm.PromptInput{
		JobTitle:       req.JobTitle,
		CompanyName:    req.CompanyName,
		JobDescription: req.JobDescription,
		ResumeText:     text,
		FileName:       req.FileName,
	})

	raw, err := s.LLM.Generate(ctx, prompt)
	if err != nil {
		metrics.IncGenerationFailed()
		return Result{}, err
	}

	parsed := analysis.Parse(raw)
	if parsed.IsDegraded() {
		metrics.IncAnalysisDegraded()
		telemetry.Warn("analysis.degraded", map[string]any{
			"user_id":   req.UserID,
			"file_name": req.FileName,
			"reason":    errString(parsed.Reason),
		})
	} else if cov := contract.Check(parsed.Result.Replacements); len(cov.Missing) > 0 || len(cov.Extra) > 0 {
		telemetry.Info("analysis.coverage", map[string]any{
			"missing": len(cov.Missing),
			"extra":   cov.Extra,
		})
	}

	rendered := render.Render(req.Document, parsed.Result.Replacements)
	if rendered.FellBack() {
		metrics.IncRenderFallback()
		telemetry.Warn("render.fell_back", map[string]any{
			"user_id":   req.UserID,
			"file_name": req.FileName,
			"reason":    errString(rendered.Reason),
		})
	}

	// The response is already computed; the tail must not be cut short by a
	// client disconnect.
	tail := context.WithoutCancel(ctx)
	if err := s.Quota.Consume(tail, subject); err != nil {
		metrics.IncGenerationFailed()
		return Result{}, err
	}

	email := ""
	if !subject.Anonymous {
		email = subject.Email
		if email == "" {
			email = req.UserEmail
		}
	}
	entry := generations.Entry{
		UserID:           subject.UserID,
		UserEmail:        email,
		JobTitle:         req.JobTitle,
		CompanyName:      req.CompanyName,
		MatchScore:       parsed.Result.MatchScore,
		OriginalFileName: req.FileName,
		AnalysisOutcome:  string(parsed.Kind),
		RenderOutcome:    string(rendered.Kind),
		CreatedAt:        time.Now().UTC(),
	}
	if s.Recorder != nil {
		entry = s.Recorder.Record(tail, entry, rendered.Document)
	}

	metrics.IncGenerationCompleted()
	return Result{
		GenerationID:    entry.ID,
		Analysis:        parsed.Result,
		AnalysisOutcome: parsed.Kind,
		RenderOutcome:   rendered.Kind,
		Document:        rendered.Document,
		FileName:        "optimized_" + req.FileName,
	}, nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
