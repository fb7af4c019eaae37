package generate

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"jobfit-backend/internal/analysis"
	"jobfit-backend/internal/llm"
	"jobfit-backend/internal/shared/server/middleware"
	"jobfit-backend/internal/shared/server/respond"
	"jobfit-backend/internal/usage"
)

const defaultMaxUploadBytes = 10 << 20 // 10MB

// Handler exposes the generation endpoint.
type Handler struct {
	Svc            *Service
	MaxUploadBytes int64
	Timeout        time.Duration
}

// NewHandler constructs a Handler. Zero limits fall back to defaults.
func NewHandler(svc *Service, maxUploadBytes int64, timeout time.Duration) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{Svc: svc, MaxUploadBytes: maxUploadBytes, Timeout: timeout}
}

// RegisterRoutes attaches the generation route; extra middleware runs before the handler.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, mw ...gin.HandlerFunc) {
	rg.POST("/generate-resume", append(mw, h.generate)...)
}

// Response is the success body.
type Response struct {
	Success  bool            `json:"success"`
	Analysis analysis.Result `json:"analysis"`
	FileData string          `json:"fileData"`
	FileName string          `json:"fileName"`
}

func (h *Handler) generate(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)

	req := Request{
		CompanyName:    c.PostForm("companyName"),
		JobTitle:       c.PostForm("jobTitle"),
		JobDescription: c.PostForm("jobDescription"),
		UserID:         middleware.UserIDFromContext(c),
		UserEmail:      middleware.UserEmailFromContext(c),
	}
	if fileHeader, err := c.FormFile("resume"); err == nil {
		file, err := fileHeader.Open()
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "Unable to read resume file", "")
			return
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				respond.Error(c, http.StatusRequestEntityTooLarge, "payload_too_large", "Resume file is too large", "")
				return
			}
			respond.Error(c, http.StatusBadRequest, "validation_error", "Unable to read resume file", "")
			return
		}
		req.Document = data
		req.FileName = fileHeader.Filename
	} else {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "payload_too_large", "Resume file is too large", "")
			return
		}
	}

	ctx := c.Request.Context()
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	result, err := h.Svc.Generate(ctx, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Set(middleware.GenerationIDKey, result.GenerationID)
	c.Set(middleware.AnalysisOutcomeKey, string(result.AnalysisOutcome))
	c.Set(middleware.RenderOutcomeKey, string(result.RenderOutcome))
	respond.JSON(c, http.StatusOK, Response{
		Success:  true,
		Analysis: result.Analysis,
		FileData: base64.StdEncoding.EncodeToString(result.Document),
		FileName: result.FileName,
	})
}

func writeError(c *gin.Context, err error) {
	var (
		validationErr *ValidationError
		quotaErr      *usage.QuotaExceededError
	)
	switch {
	case errors.As(err, &validationErr):
		respond.Error(c, http.StatusBadRequest, "validation_error", validationErr.Message, "")
	case errors.As(err, &quotaErr):
		respond.Error(c, http.StatusForbidden, "quota_exceeded", quotaErr.Error(), "")
	default:
		message := err.Error()
		if up, ok := llm.IsUpstream(err); ok {
			message = up.Error()
		}
		respond.Error(c, http.StatusInternalServerError, "generation_failed", "Failed to generate resume", message)
	}
}
