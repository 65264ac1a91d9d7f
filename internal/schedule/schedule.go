package schedule

import (
	"slices"
	"time"
)

// NextWindow returns the next publish time outside quiet hours. Hours are taken in now's location.
// A time already outside quiet hours is returned unchanged.
func NextWindow(now time.Time, quietHours []int) time.Time {
	if !slices.Contains(quietHours, now.Hour()) {
		return now
	}
	top := now.Truncate(time.Hour)
	for i := 1; i <= 48; i++ { // search up to 2 days ahead
		cand := top.Add(time.Duration(i) * time.Hour)
		if !slices.Contains(quietHours, cand.Hour()) {
			return cand
		}
	}
	// every hour is quiet
	return now.Add(15 * time.Minute)
}

// Slots spreads n publish times from now onward, one per non-quiet hour.
func Slots(now time.Time, n int, quietHours []int) []time.Time {
	out := make([]time.Time, 0, max(n, 0))
	next := NextWindow(now, quietHours)
	for len(out) < n {
		out = append(out, next)
		next = NextWindow(next.Truncate(time.Hour).Add(time.Hour), quietHours)
	}
	return out
}
