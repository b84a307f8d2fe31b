package content

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend implements Repository, Store and Ledger in memory, mirroring
// the real wiring: the "redis" side indexes whatever the "postgres" side
// holds once SaveItem ran.
type fakeBackend struct {
	items     map[int64]*Item
	cached    map[int64]bool // metadata present on the hot path
	records   map[string]FrequencyRecord
	nonces    map[string]bool
	nextID    int64
	repoErr   error
	storeErr  error
	ledgerErr error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		items:   make(map[int64]*Item),
		cached:  make(map[int64]bool),
		records: make(map[string]FrequencyRecord),
		nonces:  make(map[string]bool),
	}
}

func recKey(userID, itemID int64) string { return fmt.Sprintf("%d:%d", userID, itemID) }

// Repository

func (f *fakeBackend) GetPlacementIDs(_ context.Context, placement string) ([]int64, error) {
	if f.repoErr != nil {
		return nil, f.repoErr
	}
	var ids []int64
	for id, it := range f.items {
		if it.Placement == placement && it.IsActive {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (f *fakeBackend) GetItemsMetadata(_ context.Context, ids []int64) (map[int64]*Item, error) {
	if f.repoErr != nil {
		return nil, f.repoErr
	}
	out := make(map[int64]*Item)
	for _, id := range ids {
		if it, ok := f.items[id]; ok && f.cached[id] {
			cp := *it
			out[id] = &cp
		}
	}
	return out, nil
}

func (f *fakeBackend) ClaimNonce(_ context.Context, nonce string) (bool, error) {
	if f.nonces[nonce] {
		return false, nil
	}
	f.nonces[nonce] = true
	return true, nil
}

func (f *fakeBackend) SaveItem(_ context.Context, it *Item) error {
	f.cached[it.ID] = true
	return nil
}

func (f *fakeBackend) RemoveItem(_ context.Context, id int64) error {
	delete(f.cached, id)
	return nil
}

// Store

func (f *fakeBackend) Create(_ context.Context, it *Item) error {
	f.nextID++
	it.ID = f.nextID
	cp := *it
	f.items[it.ID] = &cp
	return nil
}

func (f *fakeBackend) Update(_ context.Context, it *Item) error {
	if _, ok := f.items[it.ID]; !ok {
		return ErrNotFound
	}
	cp := *it
	f.items[it.ID] = &cp
	return nil
}

func (f *fakeBackend) Delete(_ context.Context, id int64) error {
	delete(f.items, id)
	return nil
}

func (f *fakeBackend) GetByID(_ context.Context, id int64) (*Item, error) {
	if f.storeErr != nil {
		return nil, f.storeErr
	}
	it, ok := f.items[id]
	if !ok {
		return nil, nil
	}
	cp := *it
	return &cp, nil
}

func (f *fakeBackend) List(_ context.Context) ([]*Item, error) {
	var out []*Item
	for _, it := range f.items {
		cp := *it
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeBackend) IncrementImpressions(_ context.Context, id int64) error {
	if it, ok := f.items[id]; ok {
		it.Impressions++
	}
	return nil
}

func (f *fakeBackend) IncrementClicks(_ context.Context, id int64) error {
	if it, ok := f.items[id]; ok {
		it.Clicks++
	}
	return nil
}

// Ledger

func (f *fakeBackend) Get(_ context.Context, userID, itemID int64) (FrequencyRecord, error) {
	if f.ledgerErr != nil {
		return FrequencyRecord{}, f.ledgerErr
	}
	return f.records[recKey(userID, itemID)], nil
}

func (f *fakeBackend) RecordShown(_ context.Context, userID, itemID int64, cap int, now time.Time) (bool, error) {
	rec := f.records[recKey(userID, itemID)]
	if cap > 0 && rec.TimesShown >= cap {
		return false, nil
	}
	rec.TimesShown++
	rec.LastShownAt = &now
	f.records[recKey(userID, itemID)] = rec
	return true, nil
}

func (f *fakeBackend) Reset(_ context.Context, userID, itemID int64) error {
	suffix := fmt.Sprintf(":%d", itemID)
	for key := range f.records {
		if key == recKey(userID, itemID) || (userID == 0 && strings.HasSuffix(key, suffix)) {
			f.records[key] = FrequencyRecord{}
		}
	}
	return nil
}

func newTestService(t *testing.T, now time.Time) (*Service, *fakeBackend) {
	t.Helper()
	f := newFakeBackend()
	svc := NewService(f, f, f).WithClock(func() time.Time { return now })
	return svc, f
}

func seedItem(t *testing.T, svc *Service, it Item) *Item {
	t.Helper()
	require.NoError(t, svc.CreateItem(context.Background(), &it))
	return &it
}

func TestService_Select_PriorityOrdering(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, now)
	ctx := context.Background()

	a := seedItem(t, svc, Item{Placement: "home-top", Priority: 5, IsActive: true, Title: "A"})
	b := seedItem(t, svc, Item{Placement: "home-top", Priority: 1, IsActive: true, Title: "B"})
	c := seedItem(t, svc, Item{Placement: "home-top", Priority: 5, IsActive: true, Title: "C"})
	_ = a
	_ = c

	result, err := svc.Select(ctx, UserContext{UserID: 1}, []string{"home-top"})
	require.NoError(t, err)
	require.NotNil(t, result["home-top"])
	assert.Equal(t, b.ID, result["home-top"].ID, "lowest priority value wins")
}

func TestService_Select_PriorityTieBreaksByCreationOrder(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, now)
	ctx := context.Background()

	first := seedItem(t, svc, Item{Placement: "home-top", Priority: 5, IsActive: true})
	seedItem(t, svc, Item{Placement: "home-top", Priority: 5, IsActive: true})

	result, err := svc.Select(ctx, UserContext{UserID: 1}, []string{"home-top"})
	require.NoError(t, err)
	require.NotNil(t, result["home-top"])
	assert.Equal(t, first.ID, result["home-top"].ID, "earliest created item wins the tie")
}

func TestService_Select_NoCrossPlacementCompetition(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, now)
	ctx := context.Background()

	banner := seedItem(t, svc, Item{Placement: "home-top", Priority: 1, IsActive: true})
	overlay := seedItem(t, svc, Item{Placement: "app-open", Priority: 1, IsActive: true})

	result, err := svc.Select(ctx, UserContext{UserID: 1}, []string{"home-top", "app-open"})
	require.NoError(t, err)
	require.NotNil(t, result["home-top"])
	require.NotNil(t, result["app-open"])
	assert.Equal(t, banner.ID, result["home-top"].ID)
	assert.Equal(t, overlay.ID, result["app-open"].ID)
}

func TestService_Select_FiltersWindowTargetingAndFrequency(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	svc, f := newTestService(t, now)
	ctx := context.Background()
	user := UserContext{UserID: 1, Tier: "free", Platform: "ios", AppVersion: "2.0"}

	expired := seedItem(t, svc, Item{
		Placement: "home-top", Priority: 1, IsActive: true,
		EndsAt: tp(now.Add(-time.Minute)),
	})
	wrongTier := seedItem(t, svc, Item{
		Placement: "home-top", Priority: 2, IsActive: true,
		Targeting: TargetingSpec{Tiers: []string{"max"}},
	})
	shownOnce := seedItem(t, svc, Item{
		Placement: "home-top", Priority: 3, IsActive: true,
		Frequency: FrequencyPolicy{Rule: FrequencyOnceEver},
	})
	f.records[recKey(user.UserID, shownOnce.ID)] = FrequencyRecord{TimesShown: 1, LastShownAt: tp(now.Add(-time.Hour))}
	winner := seedItem(t, svc, Item{Placement: "home-top", Priority: 4, IsActive: true})

	result, err := svc.Select(ctx, user, []string{"home-top"})
	require.NoError(t, err)
	require.NotNil(t, result["home-top"])
	assert.Equal(t, winner.ID, result["home-top"].ID)
	_ = expired
	_ = wrongTier
}

func TestService_Select_EmptyPlacementYieldsNil(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, now)

	result, err := svc.Select(context.Background(), UserContext{UserID: 1}, []string{"nowhere"})
	require.NoError(t, err)
	assert.Nil(t, result["nowhere"])
}

func TestService_Select_StoreOutageIsAnError(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	svc, f := newTestService(t, now)
	seedItem(t, svc, Item{Placement: "home-top", Priority: 1, IsActive: true})
	f.ledgerErr = errors.New("connection refused")

	_, err := svc.Select(context.Background(), UserContext{UserID: 1}, []string{"home-top"})
	assert.Error(t, err, "an outage must never be reported as no content")
}

func TestService_Select_ReadThroughRefillsExpiredCache(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	svc, f := newTestService(t, now)
	it := seedItem(t, svc, Item{Placement: "home-top", Priority: 1, IsActive: true})

	// Metadata expired off the hot path; the index still holds the ID.
	f.cached[it.ID] = false

	result, err := svc.Select(context.Background(), UserContext{UserID: 1}, []string{"home-top"})
	require.NoError(t, err)
	require.NotNil(t, result["home-top"])
	assert.Equal(t, it.ID, result["home-top"].ID)
	assert.True(t, f.cached[it.ID], "refill re-caches the item")
}

func TestService_RecordImpression_NonceIdempotence(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	svc, f := newTestService(t, now)
	ctx := context.Background()
	it := seedItem(t, svc, Item{Placement: "home-top", Priority: 1, IsActive: true})

	nonce := "9f2c9e74-56de-4a6f-9c2e-6f5a3d8b1c01"
	require.NoError(t, svc.RecordImpression(ctx, 1, it.ID, nonce))
	require.NoError(t, svc.RecordImpression(ctx, 1, it.ID, nonce), "replay is accepted silently")

	assert.Equal(t, 1, f.records[recKey(1, it.ID)].TimesShown, "replay does not double-count")
	assert.Equal(t, int64(1), f.items[it.ID].Impressions)
}

func TestService_RecordImpression_LifetimeCapGatesCounter(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	svc, f := newTestService(t, now)
	ctx := context.Background()
	it := seedItem(t, svc, Item{
		Placement: "home-top", Priority: 1, IsActive: true,
		Frequency: FrequencyPolicy{Rule: FrequencyAlways, LifetimeCap: 2},
	})

	// Three nonce-less reports: the cap absorbs the excess.
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.RecordImpression(ctx, 1, it.ID, ""))
	}

	assert.Equal(t, 2, f.records[recKey(1, it.ID)].TimesShown, "times shown never exceeds the cap")
	assert.Equal(t, int64(2), f.items[it.ID].Impressions, "counter stays at the cap too")
}

func TestService_RecordImpression_UnknownItem(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, now)

	err := svc.RecordImpression(context.Background(), 1, 999, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_OnceEver_BlocksAfterRecordedShow(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, now)
	ctx := context.Background()
	user := UserContext{UserID: 1}
	it := seedItem(t, svc, Item{
		Placement: "home-top", Priority: 1, IsActive: true,
		Frequency: FrequencyPolicy{Rule: FrequencyOnceEver},
	})

	result, err := svc.Select(ctx, user, []string{"home-top"})
	require.NoError(t, err)
	require.NotNil(t, result["home-top"])

	require.NoError(t, svc.RecordImpression(ctx, user.UserID, it.ID, ""))

	result, err = svc.Select(ctx, user, []string{"home-top"})
	require.NoError(t, err)
	assert.Nil(t, result["home-top"], "once-ever item never comes back")
}

func TestService_RecordClick(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	svc, f := newTestService(t, now)
	it := seedItem(t, svc, Item{Placement: "home-top", IsActive: true})

	require.NoError(t, svc.RecordClick(context.Background(), it.ID))
	require.NoError(t, svc.RecordClick(context.Background(), it.ID))
	assert.Equal(t, int64(2), f.items[it.ID].Clicks)
}

func TestService_ResetImpressions(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	svc, f := newTestService(t, now)
	ctx := context.Background()
	it := seedItem(t, svc, Item{
		Placement: "home-top", IsActive: true, Priority: 1,
		Frequency: FrequencyPolicy{Rule: FrequencyOnceEver},
	})

	require.NoError(t, svc.RecordImpression(ctx, 1, it.ID, ""))
	require.NoError(t, svc.ResetImpressions(ctx, 1, it.ID))
	assert.Equal(t, 0, f.records[recKey(1, it.ID)].TimesShown)

	// Eligible again after the reset.
	result, err := svc.Select(ctx, UserContext{UserID: 1}, []string{"home-top"})
	require.NoError(t, err)
	assert.NotNil(t, result["home-top"])
}
