// Package admin exposes aggregate business counters to administrators.
package admin

import (
	"context"
	"math"

	"github.com/gin-gonic/gin"

	"cv-analyzer/internal/shared/server/respond"
)

const (
	ProMonthlyPriceUSD = 29
	CostPerAnalysisUSD = 0.02
)

type UserCounter interface {
	Count(ctx context.Context) (int, error)
}

type ProCounter interface {
	CountPro(ctx context.Context) (int, error)
}

type JobCounter interface {
	Counts(ctx context.Context) (total, completed int, err error)
}

// Metrics is the admin dashboard payload.
type Metrics struct {
	Users              int     `json:"users"`
	ActivePro          int     `json:"active_pro"`
	Jobs               int     `json:"jobs"`
	CompletedJobs      int     `json:"completed_jobs"`
	RevenueEstimateUSD int     `json:"revenue_estimate_usd"`
	AICostEstimateUSD  float64 `json:"ai_cost_estimate_usd"`
}

type Service struct {
	Users UserCounter
	Subs  ProCounter
	Jobs  JobCounter
}

func NewService(users UserCounter, subs ProCounter, jobs JobCounter) *Service {
	return &Service{Users: users, Subs: subs, Jobs: jobs}
}

func (s *Service) Snapshot(ctx context.Context) (Metrics, error) {
	var m Metrics
	var err error
	if m.Users, err = s.Users.Count(ctx); err != nil {
		return Metrics{}, err
	}
	if m.ActivePro, err = s.Subs.CountPro(ctx); err != nil {
		return Metrics{}, err
	}
	if m.Jobs, m.CompletedJobs, err = s.Jobs.Counts(ctx); err != nil {
		return Metrics{}, err
	}
	m.RevenueEstimateUSD = m.ActivePro * ProMonthlyPriceUSD
	m.AICostEstimateUSD = math.Round(float64(m.CompletedJobs)*CostPerAnalysisUSD*100) / 100
	return m, nil
}

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes expects rg to already enforce admin access.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/admin/metrics", h.metrics)
}

func (h *Handler) metrics(c *gin.Context) {
	m, err := h.Svc.Snapshot(c.Request.Context())
	if err != nil {
		respond.Internal(c, "failed to load metrics", err)
		return
	}
	respond.OK(c, m)
}
