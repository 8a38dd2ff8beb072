package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cv-analyzer/internal/shared/server/middleware"
)

type counts struct {
	users, pro, jobs, completed int
	err                         error
}

func (c counts) Count(context.Context) (int, error)    { return c.users, c.err }
func (c counts) CountPro(context.Context) (int, error) { return c.pro, nil }
func (c counts) Counts(context.Context) (int, int, error) {
	return c.jobs, c.completed, nil
}

func TestSnapshotEstimates(t *testing.T) {
	c := counts{users: 10, pro: 3, jobs: 40, completed: 37}
	m, err := NewService(c, c, c).Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Metrics{
		Users:              10,
		ActivePro:          3,
		Jobs:               40,
		CompletedJobs:      37,
		RevenueEstimateUSD: 87,
		AICostEstimateUSD:  0.74,
	}, m)
}

func TestSnapshotPropagatesErrors(t *testing.T) {
	c := counts{err: errors.New("db down")}
	_, err := NewService(c, c, c).Snapshot(context.Background())
	require.Error(t, err)
}

func newRouter(admin bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	c := counts{users: 2, pro: 1, jobs: 5, completed: 4}
	r := gin.New()
	r.Use(func(ctx *gin.Context) {
		ctx.Set("userId", "user-1")
		ctx.Set("userAdmin", admin)
		ctx.Next()
	})
	g := r.Group("/api")
	g.Use(middleware.RequireAdmin())
	NewHandler(NewService(c, c, c)).RegisterRoutes(g)
	return r
}

func TestMetricsRouteRequiresAdmin(t *testing.T) {
	resp := httptest.NewRecorder()
	newRouter(false).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/admin/metrics", nil))
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = httptest.NewRecorder()
	newRouter(true).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/admin/metrics", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.EqualValues(t, 29, body["revenue_estimate_usd"])
	assert.InDelta(t, 0.08, body["ai_cost_estimate_usd"], 1e-9)
}
