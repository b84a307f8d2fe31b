package content

import (
	"context"
	"time"
)

type Kind string

const (
	KindBanner     Kind = "BANNER"
	KindMOTD       Kind = "MOTD"
	KindInApp      Kind = "IN_APP"
	KindTouchpoint Kind = "TOUCHPOINT"
)

// FrequencyRule controls how often a single user may be shown an item.
type FrequencyRule string

const (
	FrequencyOnceEver   FrequencyRule = "ONCE_EVER"
	FrequencyOncePerDay FrequencyRule = "ONCE_PER_DAY"
	FrequencyAlways     FrequencyRule = "ALWAYS"
)

// TargetingSpec is the audience predicate on an item. Empty fields are
// wildcards; non-empty fields must ALL be satisfied.
type TargetingSpec struct {
	Tiers         []string `json:"tiers,omitempty"`
	Platforms     []string `json:"platforms,omitempty"`
	Segment       string   `json:"segment,omitempty"`
	MinAppVersion string   `json:"min_app_version,omitempty"`
}

// FrequencyPolicy combines a rule with an optional lifetime cap.
// LifetimeCap <= 0 means uncapped. The cap applies regardless of rule.
type FrequencyPolicy struct {
	Rule        FrequencyRule `json:"rule"`
	LifetimeCap int           `json:"lifetime_cap,omitempty"`
}

// Item is the unified content record the engine selects from: banners,
// message-of-the-day entries, in-app messages and touch-point prompts all
// share this shape. The rendering payload (Title/Body/ImageURL/ActionURL)
// is opaque to the decision logic.
type Item struct {
	ID            int64           `json:"id"`
	Kind          Kind            `json:"kind"`
	Placement     string          `json:"placement"`
	Title         string          `json:"title"`
	Body          string          `json:"body,omitempty"`
	ImageURL      string          `json:"image_url,omitempty"`
	ActionURL     string          `json:"action_url,omitempty"`
	Priority      int             `json:"priority"` // Lower value wins
	StartsAt      *time.Time      `json:"starts_at,omitempty"`
	EndsAt        *time.Time      `json:"ends_at,omitempty"`
	Targeting     TargetingSpec   `json:"targeting"`
	Frequency     FrequencyPolicy `json:"frequency"`
	IsActive      bool            `json:"is_active"`
	IsDismissible bool            `json:"is_dismissible"`
	CacheTTL      int             `json:"cache_ttl_seconds,omitempty"` // Metadata cache TTL, 0 = server default
	Impressions   int64           `json:"impressions"`
	Clicks        int64           `json:"clicks"`
}

// UserContext is the request-scoped audience snapshot supplied by the
// caller. The engine never derives identity itself.
type UserContext struct {
	UserID     int64  `json:"user_id"`
	Tier       string `json:"tier,omitempty"`
	Platform   string `json:"platform,omitempty"`
	Segment    string `json:"segment,omitempty"`
	AppVersion string `json:"app_version,omitempty"`
	Timezone   string `json:"tz,omitempty"` // IANA name, defaults to UTC
}

// FrequencyRecord tracks how often one user has been shown one item.
// Created lazily on the first recorded show.
type FrequencyRecord struct {
	TimesShown  int        `json:"times_shown"`
	LastShownAt *time.Time `json:"last_shown_at,omitempty"`
}

// Repository (Redis - Hot Path)
type Repository interface {
	GetPlacementIDs(ctx context.Context, placement string) ([]int64, error)
	GetItemsMetadata(ctx context.Context, ids []int64) (map[int64]*Item, error)
	ClaimNonce(ctx context.Context, nonce string) (bool, error)

	// Write methods for Syncing/Admin
	SaveItem(ctx context.Context, it *Item) error
	RemoveItem(ctx context.Context, id int64) error
}

// Store (PostgreSQL - Persistence)
type Store interface {
	Create(ctx context.Context, it *Item) error
	Update(ctx context.Context, it *Item) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*Item, error)
	List(ctx context.Context) ([]*Item, error)
	IncrementImpressions(ctx context.Context, id int64) error
	IncrementClicks(ctx context.Context, id int64) error
}

// Ledger (PostgreSQL - Frequency Records)
type Ledger interface {
	Get(ctx context.Context, userID, itemID int64) (FrequencyRecord, error)
	// RecordShown atomically increments the record. It returns false when a
	// lifetime cap (cap > 0) is already exhausted, in which case nothing is
	// written.
	RecordShown(ctx context.Context, userID, itemID int64, cap int, now time.Time) (bool, error)
	// Reset zeroes the records for an item; userID == 0 resets all users.
	Reset(ctx context.Context, userID, itemID int64) error
}
