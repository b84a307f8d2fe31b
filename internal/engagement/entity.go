package engagement

import (
	"context"
	"strings"
	"time"
)

// ActionAll is the wildcard tag matching every interaction type.
const ActionAll = "all"

// IncentiveEvent is an admin-authored, time-bounded point multiplier.
// Unlike content items, events are always bounded on both sides.
type IncentiveEvent struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Multiplier  float64   `json:"multiplier"`   // >= 1.0
	BonusPoints int       `json:"bonus_points"` // >= 0
	AppliesTo   []string  `json:"applies_to"`   // action tags, or "all"
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	IsActive    bool      `json:"is_active"`
}

// AppliesToAction reports whether the event covers the given action type.
func (e *IncentiveEvent) AppliesToAction(action string) bool {
	for _, tag := range e.AppliesTo {
		tag = strings.TrimSpace(tag)
		if strings.EqualFold(tag, ActionAll) || strings.EqualFold(tag, action) {
			return true
		}
	}
	return false
}

// State is one user's streak and points ledger. LongestStreak >=
// CurrentStreak holds after every update. LastInteractionDate is a
// calendar date ("2006-01-02") in the user's local zone; Version is the
// optimistic-concurrency token of the stored row.
type State struct {
	UserID              int64  `json:"user_id"`
	CurrentStreak       int    `json:"current_streak"`
	LongestStreak       int    `json:"longest_streak"`
	TotalPoints         int64  `json:"total_points"`
	LastInteractionDate string `json:"last_interaction_date,omitempty"`
	Version             int    `json:"-"`
}

// EventStore (PostgreSQL - Incentive Catalog)
type EventStore interface {
	Create(ctx context.Context, e *IncentiveEvent) error
	Update(ctx context.Context, e *IncentiveEvent) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*IncentiveEvent, error)
	List(ctx context.Context) ([]*IncentiveEvent, error)
}

// StateStore (PostgreSQL - Engagement Ledger)
type StateStore interface {
	// Get returns the zero State (Version 0) when the user has no row yet.
	Get(ctx context.Context, userID int64) (State, error)
	// Save inserts when st.Version == 0, otherwise updates iff the stored
	// version still matches. Returns ErrVersionConflict when it does not.
	Save(ctx context.Context, st State) error
}
