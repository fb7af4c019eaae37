package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"jobfit-backend/internal/shared/telemetry"
)

func TestRecoveryReturnsErrorBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	telemetry.SetOutput(io.Discard)

	router := gin.New()
	router.Use(RequestID(), Recovery())
	router.GET("/boom", func(c *gin.Context) {
		panic("boom")
	})

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "Internal server error" {
		t.Fatalf("unexpected body %v", body)
	}
	if resp.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected request id header")
	}
}
