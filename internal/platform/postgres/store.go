package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"content-delivery/internal/content"
)

// Store persists the content catalog. Postgres is the source of truth;
// Redis only mirrors it for the hot path.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const itemColumns = `
	id, kind, placement, title, COALESCE(body, ''), COALESCE(image_url, ''), COALESCE(action_url, ''),
	priority, starts_at, ends_at,
	COALESCE(tiers, '{}'), COALESCE(platforms, '{}'), COALESCE(segment, ''), COALESCE(min_app_version, ''),
	frequency_rule, lifetime_cap, is_active, is_dismissible, cache_ttl_seconds, impressions, clicks
`

func (s *Store) Create(ctx context.Context, it *content.Item) error {
	query := `
		INSERT INTO content_items
			(kind, placement, title, body, image_url, action_url, priority, starts_at, ends_at,
			 tiers, platforms, segment, min_app_version, frequency_rule, lifetime_cap,
			 is_active, is_dismissible, cache_ttl_seconds)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		it.Kind, it.Placement, it.Title, it.Body, it.ImageURL, it.ActionURL, it.Priority,
		it.StartsAt, it.EndsAt,
		pq.Array(it.Targeting.Tiers), pq.Array(it.Targeting.Platforms),
		it.Targeting.Segment, it.Targeting.MinAppVersion,
		it.Frequency.Rule, it.Frequency.LifetimeCap,
		it.IsActive, it.IsDismissible, it.CacheTTL,
	).Scan(&it.ID)

	if err != nil {
		return fmt.Errorf("failed to create content item: %w", err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, it *content.Item) error {
	query := `
		UPDATE content_items
		SET kind=$1, placement=$2, title=$3, body=$4, image_url=$5, action_url=$6, priority=$7,
		    starts_at=$8, ends_at=$9, tiers=$10, platforms=$11, segment=$12, min_app_version=$13,
		    frequency_rule=$14, lifetime_cap=$15, is_active=$16, is_dismissible=$17, cache_ttl_seconds=$18
		WHERE id=$19
	`
	res, err := s.db.ExecContext(ctx, query,
		it.Kind, it.Placement, it.Title, it.Body, it.ImageURL, it.ActionURL, it.Priority,
		it.StartsAt, it.EndsAt,
		pq.Array(it.Targeting.Tiers), pq.Array(it.Targeting.Platforms),
		it.Targeting.Segment, it.Targeting.MinAppVersion,
		it.Frequency.Rule, it.Frequency.LifetimeCap,
		it.IsActive, it.IsDismissible, it.CacheTTL,
		it.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update content item: %w", err)
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return content.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	// Frequency records for the item go with it.
	_, err := s.db.ExecContext(ctx, `DELETE FROM frequency_records WHERE content_id = $1`, id)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `DELETE FROM content_items WHERE id = $1`, id)
	return err
}

func (s *Store) GetByID(ctx context.Context, id int64) (*content.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM content_items WHERE id = $1`
	it, err := scanItem(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return it, nil
}

func (s *Store) List(ctx context.Context) ([]*content.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM content_items ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*content.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, it)
	}
	return result, rows.Err()
}

// IncrementImpressions bumps the item's lifetime impression counter.
// Per-user capping is enforced by the Ledger before this is called.
func (s *Store) IncrementImpressions(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE content_items SET impressions = impressions + 1 WHERE id = $1`, id)
	return err
}

func (s *Store) IncrementClicks(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE content_items SET clicks = clicks + 1 WHERE id = $1`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*content.Item, error) {
	it := &content.Item{}
	var startsAt, endsAt sql.NullTime
	var tiers, platforms pq.StringArray

	err := row.Scan(
		&it.ID, &it.Kind, &it.Placement, &it.Title, &it.Body, &it.ImageURL, &it.ActionURL,
		&it.Priority, &startsAt, &endsAt,
		&tiers, &platforms, &it.Targeting.Segment, &it.Targeting.MinAppVersion,
		&it.Frequency.Rule, &it.Frequency.LifetimeCap,
		&it.IsActive, &it.IsDismissible, &it.CacheTTL, &it.Impressions, &it.Clicks,
	)
	if err != nil {
		return nil, err
	}

	if startsAt.Valid {
		t := startsAt.Time
		it.StartsAt = &t
	}
	if endsAt.Valid {
		t := endsAt.Time
		it.EndsAt = &t
	}
	it.Targeting.Tiers = tiers
	it.Targeting.Platforms = platforms
	return it, nil
}
