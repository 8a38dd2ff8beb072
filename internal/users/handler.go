package users

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"cv-analyzer/internal/shared/server/middleware"
	"cv-analyzer/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterPublicRoutes attaches the unauthenticated auth routes.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/register", h.register)
	rg.POST("/auth/login", h.login)
	rg.POST("/auth/refresh", h.refresh)
}

// RegisterRoutes attaches routes that require an identity.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/auth/me", h.me)
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid json body", nil)
		return
	}
	user, err := h.Svc.Register(c.Request.Context(), RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			respond.Validation(c, "Invalid registration", toIssues(verr))
			return
		}
		respond.Internal(c, "failed to register", err)
		return
	}
	respond.Created(c, userBody(user))
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Username   string `json:"username"`
	Password   string `json:"password"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid json body", nil)
		return
	}
	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" {
		identifier = strings.TrimSpace(req.Username)
	}
	var issues []respond.FieldIssue
	if identifier == "" {
		issues = append(issues, respond.FieldIssue{Field: "identifier", Issue: "required"})
	}
	if req.Password == "" {
		issues = append(issues, respond.FieldIssue{Field: "password", Issue: "required"})
	}
	if len(issues) > 0 {
		respond.Validation(c, "Identifier and password are required", issues)
		return
	}

	user, pair, err := h.Svc.Login(c.Request.Context(), identifier, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			respond.Error(c, http.StatusUnauthorized, "invalid_credentials", "Invalid credentials", nil)
			return
		}
		respond.Internal(c, "failed to login", err)
		return
	}
	respond.OK(c, gin.H{
		"access":   pair.Access,
		"refresh":  pair.Refresh,
		"username": user.Username,
		"email":    user.Email,
	})
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

func (h *Handler) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Refresh) == "" {
		respond.Validation(c, "Refresh token is required", []respond.FieldIssue{{Field: "refresh", Issue: "required"}})
		return
	}
	access, err := h.Svc.Refresh(c.Request.Context(), req.Refresh)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "invalid refresh token", nil)
			return
		}
		respond.Internal(c, "failed to refresh token", err)
		return
	}
	respond.OK(c, gin.H{"access": access})
}

func (h *Handler) me(c *gin.Context) {
	if h.Svc == nil {
		respond.Internal(c, "service unavailable", nil)
		return
	}
	userID := middleware.UserIDFromContext(c)
	user, err := h.Svc.GetByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "user no longer exists", nil)
			return
		}
		respond.Internal(c, "failed to load user", err)
		return
	}
	respond.OK(c, userBody(user))
}

func userBody(user User) gin.H {
	return gin.H{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
	}
}

func toIssues(verr *ValidationError) []respond.FieldIssue {
	issues := make([]respond.FieldIssue, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		issues = append(issues, respond.FieldIssue{Field: f.Field, Issue: f.Issue})
	}
	return issues
}
