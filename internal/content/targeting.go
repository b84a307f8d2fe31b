package content

import "strings"

// MatchesContext reports whether the item's targeting spec accepts the
// given user context. Every non-empty field must be satisfied (AND across
// fields, OR within a set). Absent or empty fields are wildcards, so
// malformed admin data widens the audience instead of breaking selection.
func (t TargetingSpec) MatchesContext(u UserContext) bool {
	if !matchesSet(t.Tiers, u.Tier) {
		return false
	}
	if !matchesSet(t.Platforms, u.Platform) {
		return false
	}
	if seg := strings.TrimSpace(t.Segment); seg != "" {
		if !strings.EqualFold(seg, strings.TrimSpace(u.Segment)) {
			return false
		}
	}
	if min := strings.TrimSpace(t.MinAppVersion); min != "" {
		if CompareVersions(u.AppVersion, min) < 0 {
			return false
		}
	}
	return true
}

// matchesSet is the OR-within-a-field check. An empty set (or a set of
// blank entries) is a wildcard.
func matchesSet(allowed []string, value string) bool {
	wildcard := true
	for _, a := range allowed {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		wildcard = false
		if strings.EqualFold(a, strings.TrimSpace(value)) {
			return true
		}
	}
	return wildcard
}
