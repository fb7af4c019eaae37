package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"jobfit-backend/internal/generate"
	"jobfit-backend/internal/generations"
	"jobfit-backend/internal/llm"
	"jobfit-backend/internal/llm/gemini"
	"jobfit-backend/internal/services/health"
	"jobfit-backend/internal/shared/auth"
	"jobfit-backend/internal/shared/config"
	"jobfit-backend/internal/shared/server"
	"jobfit-backend/internal/shared/storage/db"
	"jobfit-backend/internal/shared/storage/object"
	localstore "jobfit-backend/internal/shared/storage/object/local"
	s3store "jobfit-backend/internal/shared/storage/object/s3"
	"jobfit-backend/internal/usage"
	"jobfit-backend/internal/users"
)

// App holds shared dependencies and the wired router.
type App struct {
	Config          config.Config
	Router          *gin.Engine
	DB              *sql.DB
	Redis           *redis.Client
	Store           object.ObjectStore
	LLM             llm.Client
	UsersRepo       users.Store
	GenerationsRepo generations.Repo
	QuotaEnforcer   *usage.Enforcer
	GenerationsSvc  *generations.Service
	GenerateService *generate.Service
	GenerateHandler *generate.Handler
	UsageHandler    *usage.Handler
	HistoryHandler  *generations.Handler
	Health          *health.Service
}

// Build prepares shared dependencies and the router.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}

	app := &App{Config: cfg, Health: health.NewService()}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.DB = sqlDB
	if sqlDB != nil {
		app.Health.Register("postgres", sqlDB.PingContext)
	}

	if err := buildUsers(app); err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.Store = store

	client, err := buildLLM(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.LLM = client

	signer, err := auth.NewSigner(cfg.JWTSecret, cfg.Env)
	if err != nil {
		return nil, err
	}

	if app.DB != nil {
		app.GenerationsRepo = &generations.PGRepo{DB: app.DB}
	} else {
		app.GenerationsRepo = generations.NewMemoryRepo()
	}
	app.QuotaEnforcer = usage.NewEnforcer(app.UsersRepo)
	app.GenerationsSvc = generations.NewService(app.GenerationsRepo, app.Store)
	app.GenerateService = generate.NewService(app.LLM, app.QuotaEnforcer, app.GenerationsSvc)
	app.GenerateHandler = generate.NewHandler(app.GenerateService, cfg.MaxUploadBytes, cfg.GenerationTimeout)
	app.UsageHandler = usage.NewHandler(app.QuotaEnforcer)
	app.HistoryHandler = generations.NewHandler(app.GenerationsSvc)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          cfg,
		Verifier:        signer,
		Health:          app.Health,
		Users:           app.UsersRepo,
		GenerateHandler: app.GenerateHandler,
		UsageHandler:    app.UsageHandler,
		HistoryHandler:  app.HistoryHandler,
	})
	return app, nil
}

// Close releases pooled connections.
func (a *App) Close() {
	if a.DB != nil {
		_ = a.DB.Close()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildUsers(app *App) error {
	switch app.Config.UserStore {
	case "redis":
		client, err := users.NewRedisClient(app.Config.RedisURL)
		if err != nil {
			return err
		}
		app.Redis = client
		app.UsersRepo = &users.RedisRepo{Client: client}
		app.Health.Register("redis", func(ctx context.Context) error { return client.Ping(ctx).Err() })
	case "postgres":
		if app.DB == nil {
			log.Printf("bootstrap: USER_STORE=postgres without a database; using in-memory users")
			app.UsersRepo = users.NewMemoryRepo()
			return nil
		}
		app.UsersRepo = &users.PGRepo{DB: app.DB}
	default:
		app.UsersRepo = users.NewMemoryRepo()
	}
	return nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "local":
		return localstore.New(cfg.LocalStoreDir), nil
	default:
		return nil, nil
	}
}

func buildLLM(ctx context.Context, cfg config.Config) (llm.Client, error) {
	if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
		log.Printf("bootstrap: GEMINI_API_KEY empty; generation requests will fail upstream")
		return llm.UnconfiguredClient{}, nil
	}
	client, err := gemini.NewClient(ctx, gemini.Options{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
		Timeout: cfg.GeminiTimeout,
	})
	if err != nil {
		return nil, err
	}
	return llm.WithRetry(client, cfg.GeminiMaxRetries), nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local", "test":
		return true
	default:
		return false
	}
}
