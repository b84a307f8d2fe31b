package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTargetingSpec_MatchesContext(t *testing.T) {
	user := UserContext{
		UserID:     7,
		Tier:       "free",
		Platform:   "ios",
		Segment:    "beta-testers",
		AppVersion: "2.3",
	}

	tests := []struct {
		name     string
		spec     TargetingSpec
		expected bool
	}{
		{"empty spec is wildcard", TargetingSpec{}, true},
		{"tier in set", TargetingSpec{Tiers: []string{"free", "max"}}, true},
		{"tier not in set", TargetingSpec{Tiers: []string{"max"}}, false},
		{"platform matches case-insensitively", TargetingSpec{Platforms: []string{"iOS"}}, true},
		{"platform mismatch", TargetingSpec{Platforms: []string{"android"}}, false},
		{"segment equal", TargetingSpec{Segment: "beta-testers"}, true},
		{"segment mismatch", TargetingSpec{Segment: "vip"}, false},
		{"min version satisfied by equal", TargetingSpec{MinAppVersion: "2.3.0"}, true},
		{"min version not satisfied", TargetingSpec{MinAppVersion: "2.3.1"}, false},
		{"all fields AND together", TargetingSpec{
			Tiers:         []string{"free"},
			Platforms:     []string{"ios"},
			Segment:       "beta-testers",
			MinAppVersion: "2.0",
		}, true},
		{"one failing field fails the whole predicate", TargetingSpec{
			Tiers:     []string{"free"},
			Platforms: []string{"android"},
		}, false},
		{"blank entries in a set are ignored", TargetingSpec{Tiers: []string{"", "  "}}, true},
		{"blank segment is wildcard", TargetingSpec{Segment: "   "}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.spec.MatchesContext(user))
		})
	}
}

func TestTargetingSpec_MalformedDataWidensNotBreaks(t *testing.T) {
	// A user with no attributes at all still matches a wildcard spec, and
	// a spec full of blanks never panics or excludes anyone.
	assert.True(t, TargetingSpec{}.MatchesContext(UserContext{UserID: 1}))
	assert.True(t, TargetingSpec{Tiers: []string{""}, Segment: " "}.MatchesContext(UserContext{UserID: 1}))

	// But a set with only real entries excludes the attribute-less user.
	assert.False(t, TargetingSpec{Tiers: []string{"max"}}.MatchesContext(UserContext{UserID: 1}))

	// And a min-version gate against a user with no version fails closed.
	assert.False(t, TargetingSpec{MinAppVersion: "1.0"}.MatchesContext(UserContext{UserID: 1}))
}
