package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration. It is built once by Load and passed by value.
type Config struct {
	Env             string
	Port            string
	CORSAllowOrigin []string

	DatabaseURL string
	RedisURL    string

	AnalyzeResultTTL      time.Duration
	MaxUploadSizeMB       int
	FreePlanAnalysisLimit int

	LLMProvider   string
	GeminiAPIKey  string
	GeminiModel   string
	OpenAIAPIKey  string
	OpenAIModel   string
	LLMTimeout    time.Duration
	GitHubToken   string
	GitHubAPIURL  string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	MinioEndpoint   string
	MinioAccessKey  string
	MinioSecretKey  string
	MinioBucket     string
	MinioUseSSL     bool

	QueueBackend      string
	SQSQueueURL       string
	NATSURL           string
	NATSSubject       string
	WorkerConcurrency int
	JobMaxRetries     int
	JobRetryBase      time.Duration

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	UIRedirectURL      string

	RateLimitEnabled bool
}

// Load reads configuration from the environment, .env files and an optional YAML file.
func Load() Config {
	// Best-effort load of local env files for dev convenience; real env wins.
	for _, path := range []string{".env", "cmd/.env"} {
		_ = godotenv.Load(path)
	}

	src := source{file: map[string]string{}}
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		file, err := loadYAMLFile(path)
		if err != nil {
			log.Printf("config: ignoring CONFIG_FILE %s: %v", path, err)
		} else {
			src.file = file
		}
	}

	return Config{
		Env:             normalizeEnv(src.str("ENV", "dev")),
		Port:            src.str("PORT", "8080"),
		CORSAllowOrigin: splitAndTrim(src.str("CORS_ALLOW_ORIGINS", "http://localhost:3000")),

		DatabaseURL: src.str("DATABASE_URL", ""),
		RedisURL:    src.str("REDIS_URL", ""),

		AnalyzeResultTTL:      time.Duration(src.int("ANALYZE_RESULT_TTL_SECONDS", 1800)) * time.Second,
		MaxUploadSizeMB:       src.int("MAX_UPLOAD_SIZE_MB", 10),
		FreePlanAnalysisLimit: src.int("FREE_PLAN_ANALYSIS_LIMIT", 25),

		LLMProvider:  normalizeProvider(src.str("LLM_PROVIDER", "gemini")),
		GeminiAPIKey: src.str("GEMINI_API_KEY", ""),
		GeminiModel:  src.str("GEMINI_MODEL", "gemini-1.5-flash"),
		OpenAIAPIKey: src.str("OPENAI_API_KEY", ""),
		OpenAIModel:  src.str("OPENAI_MODEL", "gpt-4o-mini"),
		LLMTimeout:   time.Duration(src.int("LLM_TIMEOUT_SECONDS", 60)) * time.Second,
		GitHubToken:  src.str("GITHUB_TOKEN", ""),
		GitHubAPIURL: strings.TrimRight(src.str("GITHUB_API_URL", "https://api.github.com"), "/"),

		ObjectStoreType: normalizeStoreType(src.str("OBJECT_STORE", "local")),
		LocalStoreDir:   src.str("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       src.str("AWS_REGION", ""),
		S3Bucket:        src.str("S3_BUCKET", ""),
		S3Prefix:        src.str("S3_PREFIX", ""),
		SSEKMSKeyID:     src.str("SSE_KMS_KEY_ID", ""),
		MinioEndpoint:   src.str("MINIO_ENDPOINT", ""),
		MinioAccessKey:  src.str("MINIO_ACCESS_KEY", ""),
		MinioSecretKey:  src.str("MINIO_SECRET_KEY", ""),
		MinioBucket:     src.str("MINIO_BUCKET", "cv-analyzer"),
		MinioUseSSL:     src.bool("MINIO_USE_SSL", false),

		QueueBackend:      normalizeQueueBackend(src.str("QUEUE_BACKEND", "inprocess")),
		SQSQueueURL:       src.str("SQS_QUEUE_URL", ""),
		NATSURL:           src.str("NATS_URL", "nats://localhost:4222"),
		NATSSubject:       src.str("NATS_SUBJECT", "cv_analyzer.jobs"),
		WorkerConcurrency: src.int("WORKER_CONCURRENCY", 4),
		JobMaxRetries:     src.int("JOB_MAX_RETRIES", 3),
		JobRetryBase:      time.Duration(src.int("JOB_RETRY_BASE_SECONDS", 1)) * time.Second,

		JWTSecret:       src.str("JWT_SECRET", ""),
		AccessTokenTTL:  time.Duration(src.int("ACCESS_TOKEN_TTL_MINUTES", 60)) * time.Minute,
		RefreshTokenTTL: time.Duration(src.int("REFRESH_TOKEN_TTL_HOURS", 168)) * time.Hour,

		GoogleClientID:     src.str("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: src.str("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  src.str("GOOGLE_REDIRECT_URL", ""),
		UIRedirectURL:      src.str("UI_REDIRECT_URL", ""),

		RateLimitEnabled: src.bool("RATE_LIMIT_ENABLED", true),
	}
}

// Validate reports settings that are mandatory outside development.
func (c Config) Validate() error {
	var errs []error
	if c.IsProduction() {
		if strings.TrimSpace(c.JWTSecret) == "" {
			errs = append(errs, errors.New("JWT_SECRET is required in production"))
		}
		if strings.TrimSpace(c.DatabaseURL) == "" {
			errs = append(errs, errors.New("DATABASE_URL is required in production"))
		}
	}
	switch c.QueueBackend {
	case "sqs":
		if strings.TrimSpace(c.SQSQueueURL) == "" {
			errs = append(errs, errors.New("QUEUE_BACKEND=sqs requires SQS_QUEUE_URL"))
		}
	case "nats":
		if strings.TrimSpace(c.NATSURL) == "" {
			errs = append(errs, errors.New("QUEUE_BACKEND=nats requires NATS_URL"))
		}
	}
	if c.MaxUploadSizeMB <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_SIZE_MB must be positive"))
	}
	if c.FreePlanAnalysisLimit < 0 {
		errs = append(errs, errors.New("FREE_PLAN_ANALYSIS_LIMIT must not be negative"))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether the service runs with production guarantees.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// IsDevLike reports whether in-memory fallbacks are acceptable.
func (c Config) IsDevLike() bool {
	return c.Env == "dev" || c.Env == "local"
}

// MaxUploadBytes returns the upload ceiling in bytes.
func (c Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadSizeMB) * 1024 * 1024
}

type source struct {
	file map[string]string
}

func (s source) str(key, def string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	if val := strings.TrimSpace(s.file[key]); val != "" {
		return val
	}
	return def
}

func (s source) int(key string, def int) int {
	raw := s.str(key, "")
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config: %s invalid int %q, using %d", key, raw, def)
		return def
	}
	return val
}

func (s source) bool(key string, def bool) bool {
	raw := s.str(key, "")
	if raw == "" {
		return def
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("config: %s invalid bool %q, using %t", key, raw, def)
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "minio":
		return "minio"
	default:
		return "local"
	}
}

func normalizeQueueBackend(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sqs":
		return "sqs"
	case "nats":
		return "nats"
	default:
		return "inprocess"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "openai":
		return "openai"
	default:
		return "gemini"
	}
}
