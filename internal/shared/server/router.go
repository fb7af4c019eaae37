package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"jobfit-backend/internal/generate"
	"jobfit-backend/internal/generations"
	"jobfit-backend/internal/services/health"
	"jobfit-backend/internal/shared/config"
	"jobfit-backend/internal/shared/metrics"
	"jobfit-backend/internal/shared/server/middleware"
	"jobfit-backend/internal/shared/server/respond"
	"jobfit-backend/internal/usage"
	"jobfit-backend/internal/users"
)

const (
	rateGroupDefault  = "DEFAULT"
	rateGroupGenerate = "GENERATE"
	generatePath      = "/api/v1/generate-resume"
)

// RouterDeps carries the handlers the router mounts. Nil handlers are skipped.
type RouterDeps struct {
	Config          config.Config
	Verifier        middleware.TokenVerifier
	Health          *health.Service
	Users           users.Store
	GenerateHandler *generate.Handler
	UsageHandler    *usage.Handler
	HistoryHandler  *generations.Handler
	Now             func() time.Time
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Auth(deps.Verifier),
		middleware.RateLimit(rateLimitConfig(deps)),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	healthSvc := deps.Health
	if healthSvc == nil {
		healthSvc = health.NewService()
	}
	api.GET("/health", func(c *gin.Context) {
		payload, ok := healthSvc.Status(c.Request.Context())
		status := http.StatusOK
		if !ok {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, payload)
	})

	if deps.GenerateHandler != nil {
		deps.GenerateHandler.RegisterRoutes(api)
	}

	authed := api.Group("", middleware.RequireUser())
	registerMeRoutes(authed, deps.Users)
	if deps.UsageHandler != nil {
		deps.UsageHandler.RegisterRoutes(authed)
	}
	if deps.HistoryHandler != nil {
		deps.HistoryHandler.RegisterRoutes(authed)
	}

	return r
}

func rateLimitConfig(deps RouterDeps) middleware.RateLimitConfig {
	perMin := deps.Config.GenerateRatePerMin
	rules := map[string]middleware.RateLimitRule{
		rateGroupDefault: {Rate: 5, Burst: 30},
	}
	if perMin > 0 {
		rules[rateGroupGenerate] = middleware.RateLimitRule{Rate: float64(perMin) / 60.0, Burst: perMin}
	}
	return middleware.RateLimitConfig{
		Rules:        rules,
		DefaultGroup: rateGroupDefault,
		GroupFor: func(c *gin.Context) string {
			if c.Request.Method == http.MethodPost && c.FullPath() == generatePath {
				return rateGroupGenerate
			}
			return rateGroupDefault
		},
		Limiter: middleware.NewRateLimiter(deps.Now),
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
