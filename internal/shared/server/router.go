package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cv-analyzer/internal/admin"
	"cv-analyzer/internal/analysis"
	googleauth "cv-analyzer/internal/auth"
	"cv-analyzer/internal/billing"
	"cv-analyzer/internal/resumes"
	"cv-analyzer/internal/services/health"
	"cv-analyzer/internal/shared/config"
	"cv-analyzer/internal/shared/metrics"
	"cv-analyzer/internal/shared/server/middleware"
	"cv-analyzer/internal/shared/server/respond"
	"cv-analyzer/internal/sharing"
	"cv-analyzer/internal/users"
)

// RouterDeps holds the handlers mounted on the API router. Nil handlers are skipped.
type RouterDeps struct {
	Config          config.Config
	Verifier        middleware.TokenVerifier
	Health          *health.Service
	UserHandler     *users.Handler
	GoogleAuth      *googleauth.GoogleService
	AnalysisHandler *analysis.Handler
	BillingHandler  *billing.Handler
	ResumeHandler   *resumes.Handler
	ShareHandler    *sharing.Handler
	AdminHandler    *admin.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Auth(deps.Verifier),
	)
	if deps.Config.RateLimitEnabled {
		r.Use(middleware.RateLimit(middleware.RateLimitConfig{
			Rules:    middleware.DefaultRateLimitRules(),
			GroupFor: middleware.GroupForRoute,
		}))
	}

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api")
	api.GET("/health", healthHandler(deps.Health))

	if deps.UserHandler != nil {
		deps.UserHandler.RegisterPublicRoutes(api)
	}
	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}
	if deps.ShareHandler != nil {
		deps.ShareHandler.RegisterPublicRoutes(api)
	}

	protected := api.Group("")
	protected.Use(middleware.RequireAuth())
	if deps.UserHandler != nil {
		deps.UserHandler.RegisterRoutes(protected)
	}
	if deps.AnalysisHandler != nil {
		deps.AnalysisHandler.RegisterRoutes(protected)
	}
	if deps.BillingHandler != nil {
		deps.BillingHandler.RegisterRoutes(protected)
	}
	if deps.ResumeHandler != nil {
		deps.ResumeHandler.RegisterRoutes(protected)
	}

	if deps.AdminHandler != nil {
		adminGroup := api.Group("")
		adminGroup.Use(middleware.RequireAdmin())
		deps.AdminHandler.RegisterRoutes(adminGroup)
	}

	return r
}

func healthHandler(svc *health.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if svc == nil {
			respond.OK(c, gin.H{"status": "ok"})
			return
		}
		report := svc.Status(c.Request.Context())
		status := http.StatusOK
		if !report.Healthy() {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, report)
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
