// Package bootstrap builds the application graph from a loaded Config.
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"cv-analyzer/internal/admin"
	"cv-analyzer/internal/analysis"
	googleauth "cv-analyzer/internal/auth"
	"cv-analyzer/internal/billing"
	"cv-analyzer/internal/github"
	"cv-analyzer/internal/llm"
	"cv-analyzer/internal/llm/gemini"
	"cv-analyzer/internal/llm/openai"
	"cv-analyzer/internal/queue"
	"cv-analyzer/internal/resultcache"
	"cv-analyzer/internal/resumes"
	"cv-analyzer/internal/services/health"
	"cv-analyzer/internal/shared/auth"
	"cv-analyzer/internal/shared/config"
	"cv-analyzer/internal/shared/server"
	"cv-analyzer/internal/shared/storage/db"
	"cv-analyzer/internal/shared/storage/object"
	localstore "cv-analyzer/internal/shared/storage/object/local"
	miniostore "cv-analyzer/internal/shared/storage/object/minio"
	s3store "cv-analyzer/internal/shared/storage/object/s3"
	"cv-analyzer/internal/shared/telemetry"
	"cv-analyzer/internal/sharing"
	"cv-analyzer/internal/users"
	"cv-analyzer/internal/workerproc"
)

const memoryCacheSize = 4096

// App holds the wired dependencies shared by the API and worker binaries.
type App struct {
	Config    config.Config
	Router    *gin.Engine
	DB        *sql.DB
	Cache     resultcache.Cache
	Store     object.Store
	Queue     queue.Client
	SQS       *queue.SQSClient
	NATS      *queue.NATSClient
	Processor *analysis.Processor
	Policy    workerproc.Policy

	Users    *users.Service
	Billing  *billing.Service
	Analysis *analysis.Service

	closers []func(context.Context) error
}

// Build connects external dependencies and wires services, handlers and the router.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	app := &App{
		Config: cfg,
		Policy: workerproc.Policy{MaxRetries: cfg.JobMaxRetries, BaseDelay: cfg.JobRetryBase},
	}

	if err := app.init(ctx); err != nil {
		return nil, err
	}
	return app, nil
}

// init acquires dependencies in order. On failure everything acquired so far
// is closed before the error is returned.
func (a *App) init(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			if closeErr := a.Close(context.WithoutCancel(ctx)); closeErr != nil {
				telemetry.Warn("bootstrap.cleanup_failed", map[string]any{"error": closeErr.Error()})
			}
		}
	}()

	if a.DB, err = buildDB(ctx, a.Config); err != nil {
		return err
	}
	if a.DB != nil {
		a.onClose(func(context.Context) error { return a.DB.Close() })
	}
	if a.Cache, err = a.buildCache(ctx); err != nil {
		return err
	}
	if a.Store, err = buildStore(ctx, a.Config); err != nil {
		return err
	}
	provider, err := buildProvider(ctx, a.Config)
	if err != nil {
		return err
	}
	if err = a.buildServices(provider); err != nil {
		return err
	}
	if a.Queue, err = a.buildQueue(ctx); err != nil {
		return err
	}
	a.Analysis.Queue = a.Queue
	return nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RunJob is the worker entrypoint for one decoded message.
func (a *App) RunJob(ctx context.Context, msg queue.Message) error {
	return workerproc.Run(ctx, a.Processor, msg, a.Policy)
}

func (a *App) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.db.memory", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.db.memory", map[string]any{"reason": "connect failed", "error": err.Error()})
			return nil, nil
		}
		return nil, err
	}
	if cfg.IsDevLike() {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return sqlDB, nil
}

func (a *App) buildCache(ctx context.Context) (resultcache.Cache, error) {
	if strings.TrimSpace(a.Config.RedisURL) == "" {
		telemetry.Warn("bootstrap.cache.memory", map[string]any{"reason": "REDIS_URL empty"})
		return resultcache.NewMemoryCache(memoryCacheSize), nil
	}
	rc, err := resultcache.NewRedisCache(a.Config.RedisURL)
	if err == nil {
		err = rc.Ping(ctx)
	}
	if err != nil {
		if rc != nil {
			_ = rc.Close()
		}
		if a.Config.IsDevLike() {
			telemetry.Warn("bootstrap.cache.memory", map[string]any{"reason": "redis unavailable", "error": err.Error()})
			return resultcache.NewMemoryCache(memoryCacheSize), nil
		}
		return nil, fmt.Errorf("redis: %w", err)
	}
	a.onClose(func(context.Context) error { return rc.Close() })
	return rc, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.Store, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.AWSRegion) == "" || strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires AWS_REGION and S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	case "minio":
		if strings.TrimSpace(cfg.MinioEndpoint) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=minio requires MINIO_ENDPOINT")
		}
		return miniostore.New(ctx, cfg.MinioEndpoint, cfg.AWSRegion, cfg.MinioBucket, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

// buildProvider returns nil when the selected provider has no key; the
// analyzer then serves the deterministic mock result.
func buildProvider(ctx context.Context, cfg config.Config) (llm.Provider, error) {
	switch cfg.LLMProvider {
	case "openai":
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			return nil, nil
		}
		return openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, "")
	default:
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
			return nil, nil
		}
		return gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, gemini.Options{})
	}
}

func (a *App) buildServices(provider llm.Provider) error {
	cfg := a.Config
	signer, err := auth.NewSigner(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, cfg.IsProduction())
	if err != nil {
		return err
	}

	var (
		userRepo     users.Repo
		analysisRepo analysis.Repo
		resumeRepo   resumes.Repo
		shareRepo    sharing.Repo
	)
	if a.DB != nil {
		userRepo = &users.PGRepo{DB: a.DB}
		analysisRepo = &analysis.PGRepo{DB: a.DB}
		resumeRepo = &resumes.PGRepo{DB: a.DB}
		shareRepo = &sharing.PGRepo{DB: a.DB}
		a.Billing = billing.NewPostgresService(billing.NewPGStore(a.DB), cfg.FreePlanAnalysisLimit)
	} else {
		userRepo = users.NewMemoryRepo()
		analysisRepo = analysis.NewMemoryRepo()
		resumeRepo = resumes.NewMemoryRepo()
		shareRepo = sharing.NewMemoryRepo()
		a.Billing = billing.NewService(cfg.FreePlanAnalysisLimit)
	}

	a.Users = users.NewService(userRepo, a.Billing, signer)
	a.Analysis = &analysis.Service{
		Repo:           analysisRepo,
		Gate:           a.Billing,
		Store:          a.Store,
		Cache:          a.Cache,
		MaxUploadBytes: cfg.MaxUploadBytes(),
	}
	a.Processor = &analysis.Processor{
		Repo:      analysisRepo,
		Store:     a.Store,
		Scraper:   github.NewScraper(cfg.GitHubAPIURL, cfg.GitHubToken),
		Analyzer:  llm.NewAnalyzer(provider, cfg.LLMTimeout),
		Cache:     a.Cache,
		Usage:     a.Billing,
		ResultTTL: cfg.AnalyzeResultTTL,
	}

	shareSvc := sharing.NewService(shareRepo, resumeRepo, a.Users)
	resumeSvc := resumes.NewService(resumeRepo, shareSvc)

	var dbPinger health.Pinger
	if a.DB != nil {
		dbPinger = health.PingFunc(func(ctx context.Context) error { return db.Ping(ctx, a.DB, 0) })
	}

	googleSvc := googleauth.NewGoogleService(googleauth.GoogleConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		UIRedirect:   cfg.UIRedirectURL,
	}, a.Users)

	a.Router = server.NewRouter(server.RouterDeps{
		Config:          cfg,
		Verifier:        signer,
		Health:          health.NewService(dbPinger, a.Cache),
		UserHandler:     users.NewHandler(a.Users),
		GoogleAuth:      googleSvc,
		AnalysisHandler: analysis.NewHandler(a.Analysis),
		BillingHandler:  billing.NewHandler(a.Billing),
		ResumeHandler:   resumes.NewHandler(resumeSvc),
		ShareHandler:    sharing.NewHandler(shareSvc),
		AdminHandler:    admin.NewHandler(admin.NewService(a.Users, a.Billing, a.Analysis)),
	})
	return nil
}

func (a *App) buildQueue(ctx context.Context) (queue.Client, error) {
	cfg := a.Config
	switch cfg.QueueBackend {
	case "sqs":
		client, err := queue.NewSQSClient(ctx, cfg.AWSRegion, cfg.SQSQueueURL)
		if err != nil {
			return nil, err
		}
		a.SQS = client
		return client, nil
	case "nats":
		client, err := queue.NewNATSClient(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			return nil, err
		}
		a.NATS = client
		a.onClose(func(context.Context) error { return client.Close() })
		return client, nil
	default:
		pool := queue.NewInProcess(cfg.WorkerConcurrency, a.RunJob)
		a.onClose(pool.Close)
		return pool, nil
	}
}
