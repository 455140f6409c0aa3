package account

import (
	"math"
	"time"
)

// IsTokenExpired reports whether a token stamped at requestedAt is past
// its lifetime. A missing timestamp counts as expired.
func IsTokenExpired(requestedAt *time.Time, lifetime time.Duration, now time.Time) bool {
	if requestedAt == nil {
		return true
	}
	return requestedAt.Add(lifetime).Before(now)
}

// IsRetryDelayElapsed reports whether a new request may replace the one
// stamped at requestedAt. A missing timestamp always allows it.
func IsRetryDelayElapsed(requestedAt *time.Time, delay time.Duration, now time.Time) bool {
	if requestedAt == nil {
		return true
	}
	return requestedAt.Add(delay).Before(now)
}

// LifetimeMinutes renders a lifetime for notifications, rounding up
func LifetimeMinutes(d time.Duration) int {
	return int(math.Ceil(d.Minutes()))
}
