package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"cv-analyzer/internal/shared/server/respond"
)

// Rate limit groups. Each principal gets one bucket per group.
const (
	GroupAnalyze = "ANALYZE"
	GroupPolling = "POLLING"
	GroupAuth    = "AUTH"
	GroupExport  = "EXPORT"
	GroupShare   = "SHARE"
	GroupDefault = "DEFAULT"
)

const (
	maxTrackedPrincipals = 10000
	idleBucketTTL        = 15 * time.Minute
)

type RateLimitRule struct {
	Rate  float64 // tokens per second
	Burst int
}

func DefaultRateLimitRules() map[string]RateLimitRule {
	return map[string]RateLimitRule{
		GroupAnalyze: {Rate: 0.2, Burst: 5},
		GroupPolling: {Rate: 5, Burst: 20},
		GroupAuth:    {Rate: 0.5, Burst: 10},
		GroupExport:  {Rate: 0.5, Burst: 5},
		GroupShare:   {Rate: 1, Burst: 20},
		GroupDefault: {Rate: 2, Burst: 30},
	}
}

// GroupForRoute maps the matched route to a rate limit group.
func GroupForRoute(c *gin.Context) string {
	path, method := c.FullPath(), c.Request.Method
	switch {
	case method == http.MethodPost && path == "/api/analyze":
		return GroupAnalyze
	case method == http.MethodGet && strings.HasPrefix(path, "/api/analyze"):
		return GroupPolling
	case strings.HasPrefix(path, "/api/auth/"):
		return GroupAuth
	case strings.HasSuffix(path, "/export"):
		return GroupExport
	case strings.HasPrefix(path, "/api/share/"):
		return GroupShare
	default:
		return GroupDefault
	}
}

type RateLimitConfig struct {
	Rules        map[string]RateLimitRule
	DefaultGroup string
	GroupFor     func(*gin.Context) string
	Limiter      *RateLimiter
}

// RateLimiter keeps one token bucket per key. Buckets idle for longer than
// idleBucketTTL are dropped and start full again.
type RateLimiter struct {
	mu      sync.Mutex
	buckets *expirable.LRU[string, *rate.Limiter]
	now     func() time.Time
}

func NewRateLimiter(now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{
		buckets: expirable.NewLRU[string, *rate.Limiter](maxTrackedPrincipals, nil, idleBucketTTL),
		now:     now,
	}
}

// Allow takes one token from key's bucket. When the bucket is empty it
// reports how long until a token is available.
func (l *RateLimiter) Allow(key string, rule RateLimitRule) (bool, time.Duration) {
	if l == nil || rule.Rate <= 0 || rule.Burst <= 0 {
		return true, 0
	}
	l.mu.Lock()
	lim, ok := l.buckets.Get(key)
	if !ok {
		lim = rate.NewLimiter(rate.Limit(rule.Rate), rule.Burst)
	}
	l.buckets.Add(key, lim)
	l.mu.Unlock()

	now := l.now()
	res := lim.ReserveN(now, 1)
	if !res.OK() {
		return false, time.Second
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// RateLimit rejects requests over their group's rule with 429 and a
// Retry-After header. The principal is the user id, or the client IP for
// anonymous calls.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Limiter == nil {
		cfg.Limiter = NewRateLimiter(nil)
	}
	if cfg.DefaultGroup == "" {
		cfg.DefaultGroup = GroupDefault
	}
	return func(c *gin.Context) {
		group := cfg.DefaultGroup
		if cfg.GroupFor != nil {
			if g := strings.TrimSpace(cfg.GroupFor(c)); g != "" {
				group = g
			}
		}
		rule, ok := cfg.Rules[group]
		if !ok {
			c.Next()
			return
		}
		principal := UserIDFromContext(c)
		if principal == "" {
			principal = "ip:" + c.ClientIP()
		}

		allowed, wait := cfg.Limiter.Allow(principal+"|"+group, rule)
		if allowed {
			c.Next()
			return
		}
		waitMs := max(int(wait/time.Millisecond), 1)
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(float64(waitMs)/1000))))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "Too many requests", gin.H{
			"retryAfterMs": waitMs,
			"group":        group,
		})
	}
}
