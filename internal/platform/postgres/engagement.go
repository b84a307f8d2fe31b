package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"content-delivery/internal/engagement"
)

// StateStore persists per-user engagement ledgers with an optimistic
// version column. The service retries on conflict; the store only reports
// it.
type StateStore struct {
	db *sql.DB
}

func NewStateStore(db *sql.DB) *StateStore {
	return &StateStore{db: db}
}

func (s *StateStore) Get(ctx context.Context, userID int64) (engagement.State, error) {
	query := `
		SELECT user_id, current_streak, longest_streak, total_points, COALESCE(last_interaction_date, ''), version
		FROM engagement_states WHERE user_id = $1
	`
	var st engagement.State
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&st.UserID, &st.CurrentStreak, &st.LongestStreak, &st.TotalPoints, &st.LastInteractionDate, &st.Version,
	)
	if err == sql.ErrNoRows {
		return engagement.State{UserID: userID}, nil // Version 0 = no row yet
	}
	if err != nil {
		return engagement.State{}, fmt.Errorf("failed to read engagement state: %w", err)
	}
	return st, nil
}

// Save writes the state. Version 0 inserts a fresh row; anything else
// updates iff the stored version is unchanged. A lost race surfaces as
// engagement.ErrVersionConflict either way.
func (s *StateStore) Save(ctx context.Context, st engagement.State) error {
	if st.Version == 0 {
		query := `
			INSERT INTO engagement_states (user_id, current_streak, longest_streak, total_points, last_interaction_date, version)
			VALUES ($1, $2, $3, $4, $5, 1)
			ON CONFLICT (user_id) DO NOTHING
		`
		res, err := s.db.ExecContext(ctx, query,
			st.UserID, st.CurrentStreak, st.LongestStreak, st.TotalPoints, st.LastInteractionDate,
		)
		if err != nil {
			return fmt.Errorf("failed to insert engagement state: %w", err)
		}
		rows, _ := res.RowsAffected()
		if rows == 0 {
			return engagement.ErrVersionConflict // Someone inserted first
		}
		return nil
	}

	query := `
		UPDATE engagement_states
		SET current_streak=$1, longest_streak=$2, total_points=$3, last_interaction_date=$4, version=version+1
		WHERE user_id=$5 AND version=$6
	`
	res, err := s.db.ExecContext(ctx, query,
		st.CurrentStreak, st.LongestStreak, st.TotalPoints, st.LastInteractionDate, st.UserID, st.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update engagement state: %w", err)
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return engagement.ErrVersionConflict
	}
	return nil
}
