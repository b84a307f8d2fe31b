package content

import "time"

// MayShow reports whether the frequency policy still allows a show given
// the user's record. The lifetime cap is checked first and applies to
// every rule. The day boundary for ONCE_PER_DAY is local midnight in loc,
// not a rolling 24h window.
func (p FrequencyPolicy) MayShow(rec FrequencyRecord, now time.Time, loc *time.Location) bool {
	if p.LifetimeCap > 0 && rec.TimesShown >= p.LifetimeCap {
		return false
	}

	switch p.Rule {
	case FrequencyOnceEver:
		return rec.TimesShown == 0
	case FrequencyOncePerDay:
		if rec.LastShownAt == nil {
			return true
		}
		return LocalDate(*rec.LastShownAt, loc).Before(LocalDate(now, loc))
	default:
		// ALWAYS, or an unknown rule authored by a newer admin tool: only
		// the lifetime cap gates it.
		return true
	}
}

// LocalDate truncates t to midnight of its calendar day in loc. The same
// boundary is used for daily frequency caps and streak continuity.
func LocalDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// Location resolves an IANA timezone name, falling back to UTC for empty
// or unknown names so a bad client value never fails a request.
func Location(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
