package resumes

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cv-analyzer/internal/shared/server/middleware"
	"cv-analyzer/internal/shared/server/respond"
	"cv-analyzer/resume/render"
)

// Handler wires HTTP handlers to the resume service.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches resume routes to an authenticated router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/resumes", h.list)
	rg.POST("/resumes", h.create)
	rg.GET("/resumes/:id", h.get)
	rg.PATCH("/resumes/:id", h.patch)
	rg.POST("/resumes/:id/share", h.share)
	rg.GET("/resumes/:id/export", h.export)
}

type createRequest struct {
	Title          string         `json:"title"`
	Content        map[string]any `json:"content"`
	LatestAnalysis map[string]any `json:"latest_analysis"`
}

type patchRequest struct {
	Title          *string        `json:"title"`
	Content        map[string]any `json:"content"`
	LatestAnalysis map[string]any `json:"latest_analysis"`
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		respond.Internal(c, "failed to list resumes", err)
		return
	}
	respond.OK(c, items)
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Validation(c, "Invalid resume", []respond.FieldIssue{{Field: "body", Issue: "invalid_json"}})
		return
	}
	res, err := h.Svc.Create(c.Request.Context(), middleware.UserIDFromContext(c), CreateInput(req))
	if err != nil {
		h.fail(c, err, "failed to create resume")
		return
	}
	respond.Created(c, res)
}

func (h *Handler) get(c *gin.Context) {
	id, ok := resumeID(c)
	if !ok {
		return
	}
	res, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), id)
	if err != nil {
		h.fail(c, err, "failed to fetch resume")
		return
	}
	respond.OK(c, res)
}

func (h *Handler) patch(c *gin.Context) {
	id, ok := resumeID(c)
	if !ok {
		return
	}
	var req patchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Validation(c, "Invalid resume", []respond.FieldIssue{{Field: "body", Issue: "invalid_json"}})
		return
	}
	res, err := h.Svc.Patch(c.Request.Context(), middleware.UserIDFromContext(c), id, PatchInput(req))
	if err != nil {
		h.fail(c, err, "failed to update resume")
		return
	}
	respond.OK(c, res)
}

func (h *Handler) share(c *gin.Context) {
	id, ok := resumeID(c)
	if !ok {
		return
	}
	token, err := h.Svc.Share(c.Request.Context(), middleware.UserIDFromContext(c), id)
	if err != nil {
		h.fail(c, err, "failed to create share link")
		return
	}
	respond.Created(c, gin.H{"token": token, "url": "/share/" + token})
}

func (h *Handler) export(c *gin.Context) {
	id, ok := resumeID(c)
	if !ok {
		return
	}
	out, err := h.Svc.Export(c.Request.Context(), middleware.UserIDFromContext(c), middleware.UserNameFromContext(c), id)
	if err != nil {
		if errors.Is(err, render.ErrRender) {
			respond.Error(c, http.StatusServiceUnavailable, "export_unavailable", "PDF export is unavailable.", nil)
			return
		}
		h.fail(c, err, "failed to export resume")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+out.FileName+`"`)
	c.Data(http.StatusOK, "application/pdf", out.Data)
}

func (h *Handler) fail(c *gin.Context, err error, message string) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		issues := make([]respond.FieldIssue, 0, len(verr.Fields))
		for _, f := range verr.Fields {
			issues = append(issues, respond.FieldIssue{Field: f.Field, Issue: f.Issue})
		}
		respond.Validation(c, "Invalid resume", issues)
	case errors.Is(err, ErrNotFound):
		respond.NotFound(c, "Resume not found.")
	default:
		respond.Internal(c, message, err)
	}
}

func resumeID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respond.NotFound(c, "Resume not found.")
		return 0, false
	}
	return id, true
}
