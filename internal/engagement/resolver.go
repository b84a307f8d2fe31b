package engagement

import "time"

// Resolve picks the single incentive event in effect for an action type at
// an instant, or nil when none applies (callers then use multiplier 1.0,
// bonus 0). Admins can author overlapping windows; the tie-break is
// deterministic: highest multiplier, then most recent start, then lowest
// ID.
func Resolve(events []*IncentiveEvent, action string, now time.Time) *IncentiveEvent {
	var best *IncentiveEvent
	for _, e := range events {
		if !e.IsActive {
			continue
		}
		if now.Before(e.StartsAt) || now.After(e.EndsAt) {
			continue
		}
		if !e.AppliesToAction(action) {
			continue
		}
		if best == nil || betterEvent(e, best) {
			best = e
		}
	}
	return best
}

func betterEvent(a, b *IncentiveEvent) bool {
	if a.Multiplier != b.Multiplier {
		return a.Multiplier > b.Multiplier
	}
	if !a.StartsAt.Equal(b.StartsAt) {
		return a.StartsAt.After(b.StartsAt)
	}
	return a.ID < b.ID
}
