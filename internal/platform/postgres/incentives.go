package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"content-delivery/internal/engagement"
)

// EventStore persists the incentive event catalog.
type EventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

func (s *EventStore) Create(ctx context.Context, e *engagement.IncentiveEvent) error {
	query := `
		INSERT INTO incentive_events (name, multiplier, bonus_points, applies_to, starts_at, ends_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		e.Name, e.Multiplier, e.BonusPoints, pq.Array(e.AppliesTo), e.StartsAt, e.EndsAt, e.IsActive,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("failed to create incentive event: %w", err)
	}
	return nil
}

func (s *EventStore) Update(ctx context.Context, e *engagement.IncentiveEvent) error {
	query := `
		UPDATE incentive_events
		SET name=$1, multiplier=$2, bonus_points=$3, applies_to=$4, starts_at=$5, ends_at=$6, is_active=$7
		WHERE id=$8
	`
	res, err := s.db.ExecContext(ctx, query,
		e.Name, e.Multiplier, e.BonusPoints, pq.Array(e.AppliesTo), e.StartsAt, e.EndsAt, e.IsActive, e.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update incentive event: %w", err)
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("incentive event not found")
	}
	return nil
}

func (s *EventStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM incentive_events WHERE id = $1`, id)
	return err
}

func (s *EventStore) GetByID(ctx context.Context, id int64) (*engagement.IncentiveEvent, error) {
	query := `
		SELECT id, name, multiplier, bonus_points, COALESCE(applies_to, '{}'), starts_at, ends_at, is_active
		FROM incentive_events WHERE id = $1
	`
	e := &engagement.IncentiveEvent{}
	var appliesTo pq.StringArray
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&e.ID, &e.Name, &e.Multiplier, &e.BonusPoints, &appliesTo, &e.StartsAt, &e.EndsAt, &e.IsActive,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	e.AppliesTo = appliesTo
	return e, nil
}

func (s *EventStore) List(ctx context.Context) ([]*engagement.IncentiveEvent, error) {
	query := `
		SELECT id, name, multiplier, bonus_points, COALESCE(applies_to, '{}'), starts_at, ends_at, is_active
		FROM incentive_events ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*engagement.IncentiveEvent
	for rows.Next() {
		e := &engagement.IncentiveEvent{}
		var appliesTo pq.StringArray
		if err := rows.Scan(
			&e.ID, &e.Name, &e.Multiplier, &e.BonusPoints, &appliesTo, &e.StartsAt, &e.EndsAt, &e.IsActive,
		); err != nil {
			return nil, err
		}
		e.AppliesTo = appliesTo
		result = append(result, e)
	}
	return result, rows.Err()
}
