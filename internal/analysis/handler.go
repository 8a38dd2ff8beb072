package analysis

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cv-analyzer/internal/billing"
	"cv-analyzer/internal/shared/server/middleware"
	"cv-analyzer/internal/shared/server/respond"
)

// multipartOverhead covers form fields and part headers on top of the file.
const multipartOverhead = 1 << 20

// Handler wires HTTP handlers to the analysis service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/analyze", h.create)
	rg.GET("/analyze", h.list)
	rg.GET("/analyze/:id", h.status)
}

func (h *Handler) create(c *gin.Context) {
	if h.Svc.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.Svc.MaxUploadBytes+multipartOverhead)
	}
	in := CreateInput{
		OwnerID:        middleware.UserIDFromContext(c),
		SourceType:     c.PostForm("source_type"),
		GitHubURL:      c.PostForm("github_url"),
		JobDescription: c.PostForm("job_description"),
	}

	fh, err := c.FormFile("file")
	switch {
	case bodyTooLarge(err):
		respondTooLarge(c)
		return
	case err == nil:
		file, openErr := fh.Open()
		if openErr != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read upload", nil)
			return
		}
		defer file.Close()
		in.File = file
		in.FileName = fh.Filename
		in.FileSize = fh.Size
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		// validated below
	default:
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid multipart body", nil)
		return
	}

	job, err := h.Svc.Create(c.Request.Context(), in)
	if err != nil {
		var verr *ValidationError
		switch {
		case errors.As(err, &verr):
			respond.Validation(c, "Invalid analyze request", toIssues(verr))
		case errors.Is(err, ErrFileTooLarge):
			respondTooLarge(c)
		case errors.Is(err, billing.ErrLimitReached):
			respond.Error(c, http.StatusPaymentRequired, "plan_limit_reached", "Plan limit reached.", nil)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			respond.Error(c, http.StatusRequestTimeout, "timeout", "request canceled", nil)
		default:
			respond.Internal(c, "failed to start analysis", err)
		}
		return
	}

	c.Set(middleware.JobIDKey, job.ID)
	c.Set(middleware.StatusTransitionKey, "->PENDING")
	respond.Accepted(c, gin.H{"job_id": job.ID})
}

func bodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || errors.Is(err, multipart.ErrMessageTooLarge)
}

func respondTooLarge(c *gin.Context) {
	respond.Error(c, http.StatusBadRequest, "file_too_large", "File too large.", []respond.FieldIssue{{Field: "file", Issue: "too_large"}})
}

func (h *Handler) status(c *gin.Context) {
	jobID := c.Param("id")
	if _, err := uuid.Parse(jobID); err != nil {
		respond.NotFound(c, "Job not found.")
		return
	}
	c.Set(middleware.JobIDKey, jobID)

	job, result, err := h.Svc.Status(c.Request.Context(), middleware.UserIDFromContext(c), jobID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.NotFound(c, "Job not found.")
		default:
			respond.Internal(c, "failed to fetch job", err)
		}
		return
	}

	resp := jobBody(job)
	if job.Status == StatusCompleted {
		resp["result"] = result
	}
	respond.OK(c, resp)
}

func (h *Handler) list(c *gin.Context) {
	limit := 20
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = 0
	}

	jobs, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c), limit, offset)
	if err != nil {
		respond.Internal(c, "failed to list jobs", err)
		return
	}
	resp := make([]gin.H, 0, len(jobs))
	for _, job := range jobs {
		resp = append(resp, jobBody(job))
	}
	respond.OK(c, resp)
}

func jobBody(job Job) gin.H {
	return gin.H{
		"id":            job.ID,
		"source_type":   job.SourceType,
		"source_input":  job.SourceInput,
		"status":        job.Status,
		"error_message": job.ErrorMessage,
		"created_at":    job.CreatedAt,
		"updated_at":    job.UpdatedAt,
	}
}

func toIssues(verr *ValidationError) []respond.FieldIssue {
	issues := make([]respond.FieldIssue, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		issues = append(issues, respond.FieldIssue{Field: f.Field, Issue: f.Issue})
	}
	return issues
}
