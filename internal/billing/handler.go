package billing

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cv-analyzer/internal/shared/server/middleware"
	"cv-analyzer/internal/shared/server/respond"
)

// Handler exposes billing endpoints.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches billing routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/billing/subscription", h.getSubscription)
}

func (h *Handler) getSubscription(c *gin.Context) {
	ownerID := middleware.UserIDFromContext(c)
	sub, err := h.Svc.Ensure(c.Request.Context(), ownerID)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			respond.Error(c, http.StatusRequestTimeout, "timeout", "request canceled", nil)
		default:
			respond.Internal(c, "failed to fetch subscription", err)
		}
		return
	}

	var limit any
	if sub.Plan == PlanFree {
		limit = h.Svc.FreeLimit()
	}
	respond.OK(c, gin.H{
		"plan":        sub.Plan,
		"used":        sub.AnalysesUsed,
		"limit":       limit,
		"canRun":      CanRun(sub, h.Svc.FreeLimit()),
		"periodStart": sub.PeriodStart,
	})
}
