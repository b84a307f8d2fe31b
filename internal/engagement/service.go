package engagement

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"content-delivery/internal/content"
)

const dateLayout = "2006-01-02"

// maxSaveRetries bounds the optimistic-concurrency retry loop. Two
// interactions racing for the same user must not both apply +1 to the
// streak; after the retries are exhausted the caller gets a retriable
// error rather than a silently dropped interaction.
const maxSaveRetries = 3

var (
	// ErrConflict is returned when the per-user ledger row kept changing
	// under us for every retry. The interaction was not applied.
	ErrConflict = errors.New("engagement state conflict, retry")

	// ErrVersionConflict is the store-level signal for a stale write.
	ErrVersionConflict = errors.New("engagement state version mismatch")
)

// InteractionResult reports what a qualifying interaction earned.
type InteractionResult struct {
	PointsAwarded int64   `json:"points_awarded"`
	CurrentStreak int     `json:"current_streak"`
	LongestStreak int     `json:"longest_streak"`
	TotalPoints   int64   `json:"total_points"`
	Multiplier    float64 `json:"multiplier"`
	BonusPoints   int     `json:"bonus_points"`
}

type Service struct {
	events EventStore
	states StateStore
	now    func() time.Time
}

func NewService(events EventStore, states StateStore) *Service {
	return &Service{events: events, states: states, now: time.Now}
}

// WithClock overrides the service clock. Tests only.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// RecordInteraction applies one qualifying interaction: it advances the
// streak by the calendar-day delta rules, resolves the active incentive
// event for the action type, and credits the points. The update is a
// read-modify-write guarded by the row version, retried a bounded number
// of times.
func (s *Service) RecordInteraction(ctx context.Context, userID int64, action string, basePoints int, tz string) (InteractionResult, error) {
	now := s.now()
	loc := content.Location(tz)
	today := content.LocalDate(now, loc)

	list, err := s.events.List(ctx)
	if err != nil {
		return InteractionResult{}, fmt.Errorf("list incentive events: %w", err)
	}
	active := Resolve(list, action, now)

	multiplier := 1.0
	bonus := 0
	if active != nil {
		multiplier = active.Multiplier
		bonus = active.BonusPoints
	}
	awarded := roundHalfUp(float64(basePoints)*multiplier) + int64(bonus)

	for attempt := 0; attempt < maxSaveRetries; attempt++ {
		st, err := s.states.Get(ctx, userID)
		if err != nil {
			return InteractionResult{}, fmt.Errorf("get engagement state: %w", err)
		}

		st.UserID = userID
		st.CurrentStreak = nextStreak(st, today, loc)
		if st.CurrentStreak > st.LongestStreak {
			st.LongestStreak = st.CurrentStreak
		}
		st.TotalPoints += awarded
		st.LastInteractionDate = laterDate(st.LastInteractionDate, today, loc)

		err = s.states.Save(ctx, st)
		if errors.Is(err, ErrVersionConflict) {
			logrus.WithFields(logrus.Fields{"user_id": userID, "attempt": attempt + 1}).
				Debug("engagement state changed underfoot, retrying")
			continue
		}
		if err != nil {
			return InteractionResult{}, fmt.Errorf("save engagement state: %w", err)
		}

		return InteractionResult{
			PointsAwarded: awarded,
			CurrentStreak: st.CurrentStreak,
			LongestStreak: st.LongestStreak,
			TotalPoints:   st.TotalPoints,
			Multiplier:    multiplier,
			BonusPoints:   bonus,
		}, nil
	}

	return InteractionResult{}, ErrConflict
}

// GetState returns the user's current ledger (zero state for new users).
func (s *Service) GetState(ctx context.Context, userID int64) (State, error) {
	return s.states.Get(ctx, userID)
}

// nextStreak applies the day-delta rules:
// no prior date -> 1; same day -> unchanged; next day -> +1;
// gap > 1 day -> restart at 1. A negative delta (clock skew, backdated
// event) is clamped to the same-day case so out-of-order events can never
// shrink or corrupt the streak.
func nextStreak(st State, today time.Time, loc *time.Location) int {
	if st.LastInteractionDate == "" {
		return 1
	}
	last, err := time.ParseInLocation(dateLayout, st.LastInteractionDate, loc)
	if err != nil {
		return 1
	}

	delta := daysBetween(last, today)
	switch {
	case delta <= 0:
		if st.CurrentStreak == 0 {
			return 1
		}
		return st.CurrentStreak
	case delta == 1:
		return st.CurrentStreak + 1
	default:
		return 1
	}
}

// daysBetween counts whole calendar days from a to b, both already
// midnight-anchored in the same location. Rounding absorbs DST days that
// are 23 or 25 hours long.
func daysBetween(a, b time.Time) int {
	return int(math.Round(b.Sub(a).Hours() / 24))
}

// laterDate keeps the stored interaction date monotonic: a clamped
// backdated event must not rewind it, or the next real interaction would
// see an inflated gap and wrongly break the streak.
func laterDate(existing string, today time.Time, loc *time.Location) string {
	if existing != "" {
		if last, err := time.ParseInLocation(dateLayout, existing, loc); err == nil && last.After(today) {
			return existing
		}
	}
	return today.Format(dateLayout)
}

func roundHalfUp(v float64) int64 {
	return int64(math.Floor(v + 0.5))
}

// --- CRUD / Admin ---

func (s *Service) CreateEvent(ctx context.Context, e *IncentiveEvent) error {
	if err := validateEvent(e); err != nil {
		return err
	}
	return s.events.Create(ctx, e)
}

func (s *Service) UpdateEvent(ctx context.Context, e *IncentiveEvent) error {
	if err := validateEvent(e); err != nil {
		return err
	}
	return s.events.Update(ctx, e)
}

func (s *Service) DeleteEvent(ctx context.Context, id int64) error {
	return s.events.Delete(ctx, id)
}

func (s *Service) ListEvents(ctx context.Context) ([]*IncentiveEvent, error) {
	return s.events.List(ctx)
}

func (s *Service) GetEvent(ctx context.Context, id int64) (*IncentiveEvent, error) {
	return s.events.GetByID(ctx, id)
}

func validateEvent(e *IncentiveEvent) error {
	if e.Multiplier < 1.0 {
		return fmt.Errorf("multiplier must be >= 1.0, got %v", e.Multiplier)
	}
	if e.BonusPoints < 0 {
		return fmt.Errorf("bonus_points must be >= 0, got %d", e.BonusPoints)
	}
	if e.StartsAt.IsZero() || e.EndsAt.IsZero() {
		return fmt.Errorf("incentive events require both starts_at and ends_at")
	}
	if e.EndsAt.Before(e.StartsAt) {
		return fmt.Errorf("ends_at precedes starts_at")
	}
	if len(e.AppliesTo) == 0 {
		return fmt.Errorf("applies_to must name at least one action type or %q", ActionAll)
	}
	return nil
}
