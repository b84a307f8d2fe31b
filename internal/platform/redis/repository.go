package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"content-delivery/internal/content"
)

const nonceTTL = 24 * time.Hour

// Repository mirrors the content catalog into Redis for the hot read
// path. One ZSET per placement (score = priority), one JSON metadata key
// per item, and a placement back-pointer so an item that moves placement
// leaves the old index. Metadata keys expire on the item's cache TTL, so
// a stale entry is bounded eventual consistency, not a correctness bug.
type Repository struct {
	rdb        *redis.Client
	defaultTTL time.Duration
}

func NewRepository(rdb *redis.Client, defaultTTL time.Duration) *Repository {
	return &Repository{rdb: rdb, defaultTTL: defaultTTL}
}

func placementKey(placement string) string {
	return fmt.Sprintf("content:placement:%s", placement)
}

func metaKey(id int64) string {
	return fmt.Sprintf("content:%d:meta", id)
}

func homeKey(id int64) string {
	return fmt.Sprintf("content:%d:placement", id)
}

// GetPlacementIDs fetches candidate IDs for a placement, lowest priority
// score first (lower = wins).
func (r *Repository) GetPlacementIDs(ctx context.Context, placement string) ([]int64, error) {
	idsStr, err := r.rdb.ZRange(ctx, placementKey(placement), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get placement candidates: %w", err)
	}

	ids := make([]int64, 0, len(idsStr))
	for _, s := range idsStr {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			continue // Skip invalid IDs
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// GetItemsMetadata fetches metadata for multiple items (Pipeline).
// Expired or missing entries are skipped; /admin/sync repopulates them.
func (r *Repository) GetItemsMetadata(ctx context.Context, ids []int64) (map[int64]*content.Item, error) {
	pipe := r.rdb.Pipeline()
	cmds := make(map[int64]*redis.StringCmd, len(ids))

	for _, id := range ids {
		cmds[id] = pipe.Get(ctx, metaKey(id))
	}

	_, err := pipe.Exec(ctx)
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to exec pipeline metadata: %w", err)
	}

	result := make(map[int64]*content.Item)
	for id, cmd := range cmds {
		val, err := cmd.Result()
		if err != nil {
			continue
		}

		var it content.Item
		if err := json.Unmarshal([]byte(val), &it); err == nil {
			it.ID = id
			result[id] = &it
		}
	}
	return result, nil
}

// ClaimNonce marks an impression nonce as seen. Returns false when the
// nonce was already claimed (duplicate network retry).
func (r *Repository) ClaimNonce(ctx context.Context, nonce string) (bool, error) {
	key := fmt.Sprintf("impression:nonce:%s", nonce)
	return r.rdb.SetNX(ctx, key, 1, nonceTTL).Result()
}

// SaveItem syncs metadata and the placement index.
func (r *Repository) SaveItem(ctx context.Context, it *content.Item) error {
	// An item moved to another placement must leave the old ZSET.
	oldPlacement, err := r.rdb.Get(ctx, homeKey(it.ID)).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("failed to read placement pointer: %w", err)
	}

	ttl := r.defaultTTL
	if it.CacheTTL > 0 {
		ttl = time.Duration(it.CacheTTL) * time.Second
	}

	bytes, err := json.Marshal(it)
	if err != nil {
		return err
	}

	pipe := r.rdb.Pipeline()
	pipe.Set(ctx, metaKey(it.ID), bytes, ttl)
	pipe.Set(ctx, homeKey(it.ID), it.Placement, 0)

	if oldPlacement != "" && oldPlacement != it.Placement {
		pipe.ZRem(ctx, placementKey(oldPlacement), it.ID)
	}
	if it.IsActive {
		pipe.ZAdd(ctx, placementKey(it.Placement), redis.Z{Score: float64(it.Priority), Member: it.ID})
	} else {
		pipe.ZRem(ctx, placementKey(it.Placement), it.ID)
	}

	_, err = pipe.Exec(ctx)
	return err
}

func (r *Repository) RemoveItem(ctx context.Context, id int64) error {
	placement, err := r.rdb.Get(ctx, homeKey(id)).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("failed to read placement pointer: %w", err)
	}

	pipe := r.rdb.Pipeline()
	if placement != "" {
		pipe.ZRem(ctx, placementKey(placement), id)
	}
	pipe.Del(ctx, metaKey(id))
	pipe.Del(ctx, homeKey(id))
	_, err = pipe.Exec(ctx)
	return err
}
