package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"content-delivery/internal/content"
)

// Ledger is the durable per-(user, item) frequency record store. It is the
// component that keeps a capped item's impressions at or below its cap,
// so the increment carries the cap guard inside the statement instead of
// trusting a read-then-write from the caller.
type Ledger struct {
	db *sql.DB
}

func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

func (l *Ledger) Get(ctx context.Context, userID, itemID int64) (content.FrequencyRecord, error) {
	var rec content.FrequencyRecord
	var lastShown sql.NullTime

	query := `SELECT times_shown, last_shown_at FROM frequency_records WHERE user_id = $1 AND content_id = $2`
	err := l.db.QueryRowContext(ctx, query, userID, itemID).Scan(&rec.TimesShown, &lastShown)
	if err == sql.ErrNoRows {
		return content.FrequencyRecord{}, nil // Lazily created, absent = never shown
	}
	if err != nil {
		return content.FrequencyRecord{}, fmt.Errorf("failed to read frequency record: %w", err)
	}

	if lastShown.Valid {
		t := lastShown.Time
		rec.LastShownAt = &t
	}
	return rec, nil
}

// RecordShown upserts the record in one statement. With a positive cap the
// update only applies while times_shown < cap; zero rows affected means
// the cap blocked it. Concurrent reports for the same (user, item) pair
// serialize on the row, so a double-tap cannot step past the cap.
func (l *Ledger) RecordShown(ctx context.Context, userID, itemID int64, cap int, now time.Time) (bool, error) {
	query := `
		INSERT INTO frequency_records (user_id, content_id, times_shown, last_shown_at)
		VALUES ($1, $2, 1, $3)
		ON CONFLICT (user_id, content_id) DO UPDATE
		SET times_shown = frequency_records.times_shown + 1, last_shown_at = EXCLUDED.last_shown_at
		WHERE $4 <= 0 OR frequency_records.times_shown < $4
	`
	res, err := l.db.ExecContext(ctx, query, userID, itemID, now, cap)
	if err != nil {
		return false, fmt.Errorf("failed to record show: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// Reset zeroes records for an item. userID == 0 resets every user's
// record (the admin "reset impressions" action).
func (l *Ledger) Reset(ctx context.Context, userID, itemID int64) error {
	var err error
	if userID == 0 {
		_, err = l.db.ExecContext(ctx,
			`UPDATE frequency_records SET times_shown = 0, last_shown_at = NULL WHERE content_id = $1`, itemID)
	} else {
		_, err = l.db.ExecContext(ctx,
			`UPDATE frequency_records SET times_shown = 0, last_shown_at = NULL WHERE user_id = $1 AND content_id = $2`,
			userID, itemID)
	}
	if err != nil {
		return fmt.Errorf("failed to reset frequency records: %w", err)
	}
	return nil
}
