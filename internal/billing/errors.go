package billing

import "errors"

// ErrLimitReached indicates the owner exhausted the free plan.
var ErrLimitReached = errors.New("plan limit reached")
