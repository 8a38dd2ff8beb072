package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cv-analyzer/internal/shared/telemetry"
)

// Context keys handlers may set to enrich the request log line.
const (
	JobIDKey            = "jobId"
	StatusTransitionKey = "statusTransition"
)

// quietRoutes are probe endpoints that would flood the log.
var quietRoutes = map[string]bool{
	"/metrics":    true,
	"/api/health": true,
}

// Logging writes one request.complete line per request: info for 2xx/3xx,
// warn for 4xx and error for 5xx. Preflights and successful probes are skipped.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		if status < http.StatusBadRequest && quietRoutes[c.FullPath()] {
			return
		}
		fields := map[string]any{
			"request_id":        RequestIDFromContext(c),
			"method":            c.Request.Method,
			"route":             c.FullPath(),
			"path":              c.Request.URL.Path,
			"status":            status,
			"status_transition": c.GetString(StatusTransitionKey),
			"duration_ms":       float64(time.Since(start).Microseconds()) / 1000.0,
			"user_id":           UserIDFromContext(c),
			"job_id":            c.GetString(JobIDKey),
			"bytes":             c.Writer.Size(),
			"client_ip":         c.ClientIP(),
		}
		if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
			fields["errors"] = errs.String()
		}
		switch {
		case status >= http.StatusInternalServerError:
			telemetry.Error("request.complete", fields)
		case status >= http.StatusBadRequest:
			telemetry.Warn("request.complete", fields)
		default:
			telemetry.Info("request.complete", fields)
		}
	}
}
