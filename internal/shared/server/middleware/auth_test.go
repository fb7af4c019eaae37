package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"jobfit-backend/internal/shared/auth"
)

func newTestSigner(t *testing.T) *auth.Signer {
	t.Helper()
	s, err := auth.NewSigner("test-secret", "test")
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	return s
}

func TestAuthAllowsOptionsWithoutIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth(newTestSigner(t)))
	router.OPTIONS("/api/v1/generate-resume", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/generate-resume", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
}

func TestAuthAnonymousAndBearer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	signer := newTestSigner(t)
	router := gin.New()
	router.Use(Auth(signer))
	router.GET("/who", func(c *gin.Context) {
		c.String(http.StatusOK, UserIDFromContext(c)+"|"+UserEmailFromContext(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK || resp.Body.String() != "|" {
		t.Fatalf("expected anonymous pass-through, got %d %q", resp.Code, resp.Body.String())
	}

	token, err := signer.Sign(auth.Claims{Email: "jane@example.com", RegisteredClaims: jwt.RegisteredClaims{Subject: "user-7"}})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/who", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Body.String() != "user-7|jane@example.com" {
		t.Fatalf("unexpected identity %q", resp.Body.String())
	}
}

func TestAuthRejectsBadToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth(newTestSigner(t)))
	router.GET("/who", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, header := range []string{"Bearer nope", "Basic abc", "Bearer "} {
		req := httptest.NewRequest(http.MethodGet, "/who", nil)
		req.Header.Set("Authorization", header)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%q: expected 401, got %d", header, resp.Code)
		}
	}
}

func TestRequireUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth(newTestSigner(t)), RequireUser())
	router.GET("/usage", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/usage", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for anonymous, got %d", resp.Code)
	}
}
