package sharing

import (
	"errors"

	"github.com/gin-gonic/gin"

	"cv-analyzer/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterPublicRoutes attaches the anonymous share route.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/share/:token", h.detail)
}

func (h *Handler) detail(c *gin.Context) {
	snap, err := h.Svc.Resolve(c.Request.Context(), c.Param("token"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.NotFound(c, "Link not found.")
			return
		}
		respond.Internal(c, "failed to load shared resume", err)
		return
	}
	respond.OK(c, snap)
}
