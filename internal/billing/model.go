package billing

import "time"

// Plan identifies a subscription tier.
type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// DefaultFreeLimit is the number of analyses a free plan may run.
const DefaultFreeLimit = 25

// Subscription is the per-owner plan and usage counter.
type Subscription struct {
	OwnerID      string
	Plan         Plan
	AnalysesUsed int
	PeriodStart  time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CanRun reports whether another analysis may be admitted.
func CanRun(sub Subscription, freeLimit int) bool {
	if sub.Plan == PlanPro {
		return true
	}
	return sub.AnalysesUsed < freeLimit
}
