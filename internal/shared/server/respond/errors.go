package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cv-analyzer/internal/shared/telemetry"
)

// ErrorBody is the payload of every error response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// FieldIssue describes one invalid input field.
type FieldIssue struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

// Error aborts the request with the shared error envelope. The request log
// line written by the logging middleware records the status.
func Error(c *gin.Context, status int, code, message string, details any) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{Code: code, Message: message, Details: details},
	})
}

// Internal answers 500 with a generic message and logs err, which is never
// shown to the client.
func Internal(c *gin.Context, message string, err error) {
	fields := map[string]any{
		"request_id": c.GetString("requestId"),
		"route":      c.FullPath(),
		"message":    message,
	}
	if err != nil {
		fields["error"] = err.Error()
		_ = c.Error(err)
	}
	telemetry.Error("http.internal_error", fields)
	Error(c, http.StatusInternalServerError, "internal_error", message, nil)
}

// Validation answers 400 with field-level issues.
func Validation(c *gin.Context, message string, issues []FieldIssue) {
	Error(c, http.StatusBadRequest, "validation_error", message, issues)
}

func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, "not_found", message, nil)
}
