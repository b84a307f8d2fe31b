package content

import "time"

// InWindow reports whether the item may run at the given instant.
// IsActive == false is a hard kill-switch regardless of the window.
// Both bounds are inclusive; a nil bound is unbounded on that side.
func (it *Item) InWindow(now time.Time) bool {
	if !it.IsActive {
		return false
	}
	if it.StartsAt != nil && now.Before(*it.StartsAt) {
		return false
	}
	if it.EndsAt != nil && now.After(*it.EndsAt) {
		return false
	}
	return true
}
