package respond

import (
	"github.com/gin-gonic/gin"

	"jobfit-backend/internal/shared/telemetry"
)

// ErrorResponse is the error body every endpoint returns.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Error logs the failure under a machine-readable code and aborts with {error, message}.
func Error(c *gin.Context, status int, code, errText, message string) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"error":      errText,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if message != "" {
		fields["message"] = message
	}
	if userID := c.GetString("userId"); userID != "" {
		fields["user_id"] = userID
	}
	if status >= 500 {
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Warn("http.error", fields)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:   errText,
		Message: message,
	})
}
