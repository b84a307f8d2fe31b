package content

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	ErrNotFound = errors.New("content item not found")
)

type Service struct {
	repo   Repository // Redis
	store  Store      // Postgres
	ledger Ledger     // Postgres
	now    func() time.Time
}

func NewService(repo Repository, store Store, ledger Ledger) *Service {
	return &Service{repo: repo, store: store, ledger: ledger, now: time.Now}
}

// WithClock overrides the service clock. Tests only.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Select determines the winning item for each requested placement.
// Items in different placements never compete; within a placement the
// lowest priority wins, ties broken by lowest ID. Selection is read-only:
// it never records a show, because a computed winner may still not be
// rendered by the caller.
func (s *Service) Select(ctx context.Context, user UserContext, placements []string) (map[string]*Item, error) {
	now := s.now()
	loc := Location(user.Timezone)
	result := make(map[string]*Item, len(placements))

	for _, placement := range placements {
		winner, err := s.selectOne(ctx, user, placement, now, loc)
		if err != nil {
			// A store outage is a reported error, never an empty result.
			return nil, fmt.Errorf("select placement %q: %w", placement, err)
		}
		result[placement] = winner
	}
	return result, nil
}

func (s *Service) selectOne(ctx context.Context, user UserContext, placement string, now time.Time, loc *time.Location) (*Item, error) {
	// 1. Get candidate IDs for this placement (Redis ZSET, scored by priority)
	ids, err := s.repo.GetPlacementIDs(ctx, placement)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	// 2. Fetch metadata for all candidates (Pipeline)
	itemMap, err := s.repo.GetItemsMetadata(ctx, ids)
	if err != nil {
		return nil, err
	}

	// 2b. Read-through: cache TTLs expire metadata keys while the
	// placement index keeps the ID, so refill misses from the DB.
	for _, id := range ids {
		if _, ok := itemMap[id]; ok {
			continue
		}
		it, err := s.store.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if it == nil {
			continue // Deleted but still indexed; sync will clean up
		}
		itemMap[id] = it
		if err := s.repo.SaveItem(ctx, it); err != nil {
			logrus.WithError(err).WithField("content_id", id).Warn("cache refill failed")
		}
	}

	// 3. Deterministic order: priority ascending, then ID ascending.
	// The ZSET is already priority-sorted but its member tie-break is
	// lexical, so re-sort on the fetched metadata.
	candidates := make([]*Item, 0, len(itemMap))
	for _, it := range itemMap {
		candidates = append(candidates, it)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority < candidates[j].Priority
		}
		return candidates[i].ID < candidates[j].ID
	})

	// 4. Evaluation loop: cheapest checks first.
	for _, it := range candidates {
		// A. Kill-switch + validity window
		if !it.InWindow(now) {
			continue
		}

		// B. Targeting predicate
		if !it.Targeting.MatchesContext(user) {
			continue
		}

		// C. Frequency cap
		rec, err := s.ledger.Get(ctx, user.UserID, it.ID)
		if err != nil {
			return nil, fmt.Errorf("frequency record for item %d: %w", it.ID, err)
		}
		if !it.Frequency.MayShow(rec, now, loc) {
			continue
		}

		// D. Winner found
		return it, nil
	}

	return nil, nil // No eligible item in this placement
}

// RecordImpression charges one show against the user's frequency record
// and bumps the item's impression counter. A duplicate report carrying a
// previously seen nonce is a no-op; reports without a nonce are accepted
// at-least-once with the lifetime cap as the safety net.
func (s *Service) RecordImpression(ctx context.Context, userID, itemID int64, nonce string) error {
	if nonce != "" {
		fresh, err := s.repo.ClaimNonce(ctx, nonce)
		if err != nil {
			return fmt.Errorf("claim impression nonce: %w", err)
		}
		if !fresh {
			logrus.WithFields(logrus.Fields{"user_id": userID, "content_id": itemID}).
				Debug("duplicate impression nonce, ignoring")
			return nil
		}
	}

	it, err := s.store.GetByID(ctx, itemID)
	if err != nil {
		return err
	}
	if it == nil {
		return ErrNotFound
	}

	shown, err := s.ledger.RecordShown(ctx, userID, itemID, it.Frequency.LifetimeCap, s.now())
	if err != nil {
		return fmt.Errorf("record shown: %w", err)
	}
	if !shown {
		// Lifetime cap already exhausted: the ledger is the gate that keeps
		// impressions <= cap, so the counter is not incremented either.
		logrus.WithFields(logrus.Fields{"user_id": userID, "content_id": itemID}).
			Warn("impression reported past lifetime cap, dropped")
		return nil
	}

	return s.store.IncrementImpressions(ctx, itemID)
}

// RecordClick bumps the item's click counter.
func (s *Service) RecordClick(ctx context.Context, itemID int64) error {
	return s.store.IncrementClicks(ctx, itemID)
}

// ResetImpressions zeroes frequency records for an item, for one user or
// for all users when userID == 0. Admin-only operation.
func (s *Service) ResetImpressions(ctx context.Context, userID, itemID int64) error {
	return s.ledger.Reset(ctx, userID, itemID)
}

// --- CRUD / Admin ---

func (s *Service) CreateItem(ctx context.Context, it *Item) error {
	// 1. Save to DB (Single Source of Truth)
	if err := s.store.Create(ctx, it); err != nil {
		return err
	}
	// 2. Sync to Redis (Cache / Hot Path)
	return s.repo.SaveItem(ctx, it)
}

func (s *Service) UpdateItem(ctx context.Context, it *Item) error {
	if err := s.store.Update(ctx, it); err != nil {
		return err
	}
	return s.repo.SaveItem(ctx, it)
}

func (s *Service) DeleteItem(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	return s.repo.RemoveItem(ctx, id)
}

func (s *Service) ListItems(ctx context.Context) ([]*Item, error) {
	return s.store.List(ctx) // DB Only
}

func (s *Service) GetItem(ctx context.Context, id int64) (*Item, error) {
	return s.store.GetByID(ctx, id) // DB Only
}

// SyncItems pushes the full catalog from the DB into Redis. Admin writes
// already sync item-by-item; this rebuilds the hot path after a cache
// flush or missed write.
func (s *Service) SyncItems(ctx context.Context) error {
	list, err := s.store.List(ctx)
	if err != nil {
		return err
	}
	for _, it := range list {
		if err := s.repo.SaveItem(ctx, it); err != nil {
			return err
		}
	}
	logrus.WithField("items", len(list)).Info("catalog synced to redis")
	return nil
}
