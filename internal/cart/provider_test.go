package cart

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fjod/go_storefront/internal/cache"
	"github.com/fjod/go_storefront/internal/docstore"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cartCollection = "Kundvagn"

// flakyStore fails Delete for the ids listed in failIDs.
type flakyStore struct {
	*docstore.MemoryStore
	failIDs   map[string]bool
	deletes   atomic.Int32
	inFlight  atomic.Int32
	maxFlight atomic.Int32
}

func (f *flakyStore) Delete(ctx context.Context, collection, id string) error {
	f.deletes.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxFlight.Load()
		if n <= m || f.maxFlight.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(20 * time.Millisecond)

	if f.failIDs[id] {
		return errors.New("permission denied")
	}
	return f.MemoryStore.Delete(ctx, collection, id)
}

type mockCache struct {
	m       sync.Mutex
	items   []domain.CartItem
	sets    int
	deletes int
	err     error
}

func (c *mockCache) Get(context.Context, string) ([]domain.CartItem, error) {
	c.m.Lock()
	defer c.m.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	if c.items == nil {
		return nil, cache.ErrCacheMiss
	}
	return c.items, nil
}

func (c *mockCache) Set(_ context.Context, _ string, items []domain.CartItem) error {
	c.m.Lock()
	defer c.m.Unlock()
	c.items = items
	c.sets++
	return c.err
}

func (c *mockCache) Delete(context.Context, string) error {
	c.m.Lock()
	defer c.m.Unlock()
	c.items = nil
	c.deletes++
	return c.err
}

func (c *mockCache) setCount() int {
	c.m.Lock()
	defer c.m.Unlock()
	return c.sets
}

func setupProvider(t *testing.T, store docstore.Store, opts ...Option) *Provider {
	t.Helper()
	p := NewProvider(store, cartCollection, opts...)
	require.NoError(t, p.Start(context.Background()))
	t.Cleanup(p.Close)
	return p
}

func waitForItems(t *testing.T, p *Provider, n int) []domain.CartItem {
	t.Helper()
	var items []domain.CartItem
	require.Eventually(t, func() bool {
		items = p.Items()
		return len(items) == n
	}, 2*time.Second, 5*time.Millisecond)
	return items
}

func TestProvider_SnapshotReplacesList(t *testing.T) {
	store := docstore.NewMemoryStore()
	defer store.Close()
	p := setupProvider(t, store)

	p.SetItems([]domain.CartItem{{ID: "stale-1"}, {ID: "stale-2"}, {ID: "stale-3"}, {ID: "stale-4"}})

	ids := store.Seed(cartCollection,
		docstore.Fields{"title": "Boll"},
		docstore.Fields{"title": "Drake"},
		docstore.Fields{"title": "Pussel"},
	)

	items := waitForItems(t, p, 3)
	for i, item := range items {
		assert.Equal(t, ids[i], item.ID)
	}
	assert.Equal(t, "Drake", items[1].Fields["title"])
}

func TestProvider_StartTwice(t *testing.T) {
	store := docstore.NewMemoryStore()
	defer store.Close()
	p := setupProvider(t, store)

	assert.ErrorIs(t, p.Start(context.Background()), ErrAlreadyStarted)
}

func TestProvider_CloseStopsUpdates(t *testing.T) {
	store := docstore.NewMemoryStore()
	defer store.Close()
	p := NewProvider(store, cartCollection)
	require.NoError(t, p.Start(context.Background()))

	store.Seed(cartCollection, docstore.Fields{"title": "Boll"})
	waitForItems(t, p, 1)

	p.Close()
	store.Seed(cartCollection, docstore.Fields{"title": "Drake"})

	time.Sleep(50 * time.Millisecond)
	assert.Len(t, p.Items(), 1)
}

func TestProvider_ClearCartIsNotOptimistic(t *testing.T) {
	store := &flakyStore{MemoryStore: docstore.NewMemoryStore()}
	defer store.Close()
	store.Seed(cartCollection, docstore.Fields{"title": "Boll"}, docstore.Fields{"title": "Drake"})

	p := NewProvider(store, cartCollection)
	// not started: nothing observes the collection
	p.SetItems([]domain.CartItem{{ID: "x"}, {ID: "y"}})

	require.NoError(t, p.ClearCart(context.Background()))
	assert.Len(t, p.Items(), 2)

	docs, err := store.List(context.Background(), cartCollection)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestProvider_ClearCartEmptiesThroughSubscription(t *testing.T) {
	store := &flakyStore{MemoryStore: docstore.NewMemoryStore()}
	defer store.Close()
	store.Seed(cartCollection, docstore.Fields{"title": "Boll"}, docstore.Fields{"title": "Drake"})
	p := setupProvider(t, store)
	waitForItems(t, p, 2)

	require.NoError(t, p.ClearCart(context.Background()))

	waitForItems(t, p, 0)
	assert.Equal(t, int32(2), store.deletes.Load())
	assert.Equal(t, int32(2), store.maxFlight.Load(), "deletes should run concurrently")
}

func TestProvider_ClearCartFailsAsAWhole(t *testing.T) {
	store := &flakyStore{MemoryStore: docstore.NewMemoryStore()}
	defer store.Close()
	ids := store.Seed(cartCollection, docstore.Fields{"title": "Boll"}, docstore.Fields{"title": "Drake"})
	store.failIDs = map[string]bool{ids[0]: true}

	p := NewProvider(store, cartCollection)
	err := p.ClearCart(context.Background())
	require.ErrorContains(t, err, "permission denied")
	assert.Equal(t, int32(2), store.deletes.Load())

	// the other delete was committed anyway
	docs, err := store.List(context.Background(), cartCollection)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, ids[0], docs[0].ID)
}

func TestProvider_ClearEmptyCart(t *testing.T) {
	store := docstore.NewMemoryStore()
	defer store.Close()
	p := NewProvider(store, cartCollection)

	assert.NoError(t, p.ClearCart(context.Background()))
}

func TestProvider_SeedsFromCacheAndWritesSnapshots(t *testing.T) {
	store := docstore.NewMemoryStore()
	defer store.Close()
	c := &mockCache{items: []domain.CartItem{{ID: "cached"}}}

	// seed without subscribing so the cached list is observable
	p := NewProvider(store, cartCollection, WithCache(c))
	p.seedFromCache(context.Background())
	assert.Equal(t, "cached", p.Items()[0].ID)

	require.NoError(t, p.Start(context.Background()))
	defer p.Close()

	waitForItems(t, p, 0)
	require.Eventually(t, func() bool { return c.setCount() > 0 }, time.Second, 5*time.Millisecond)
}

func TestProvider_CacheErrorsAreIgnored(t *testing.T) {
	store := docstore.NewMemoryStore()
	defer store.Close()
	c := &mockCache{err: errors.New("redis down")}

	p := setupProvider(t, store, WithCache(c))
	store.Seed(cartCollection, docstore.Fields{"title": "Boll"})

	waitForItems(t, p, 1)
}

func TestProvider_Watch(t *testing.T) {
	store := docstore.NewMemoryStore()
	defer store.Close()
	p := setupProvider(t, store)

	ctx, cancel := context.WithCancel(context.Background())
	ch := p.Watch(ctx)

	store.Seed(cartCollection, docstore.Fields{"title": "Boll"})

	require.Eventually(t, func() bool {
		select {
		case items := <-ch:
			return len(items) == 1
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestProvider_ClearCartDropsCachedList(t *testing.T) {
	store := docstore.NewMemoryStore()
	defer store.Close()
	store.Seed(cartCollection, docstore.Fields{"title": "Boll"})
	c := &mockCache{items: []domain.CartItem{{ID: "stale"}}}

	// not started: only ClearCart touches the cache
	p := NewProvider(store, cartCollection, WithCache(c))
	require.NoError(t, p.ClearCart(context.Background()))

	c.m.Lock()
	defer c.m.Unlock()
	assert.Equal(t, 1, c.deletes)
	assert.Nil(t, c.items)
}

func TestProvider_ClearCartFailureKeepsCache(t *testing.T) {
	store := &flakyStore{MemoryStore: docstore.NewMemoryStore()}
	defer store.Close()
	ids := store.Seed(cartCollection, docstore.Fields{"title": "Boll"})
	store.failIDs = map[string]bool{ids[0]: true}
	c := &mockCache{items: []domain.CartItem{{ID: ids[0]}}}

	p := NewProvider(store, cartCollection, WithCache(c))
	require.Error(t, p.ClearCart(context.Background()))

	c.m.Lock()
	defer c.m.Unlock()
	assert.Equal(t, 0, c.deletes)
}

func TestProvider_WatchAfterClose(t *testing.T) {
	store := docstore.NewMemoryStore()
	defer store.Close()
	p := NewProvider(store, cartCollection)
	require.NoError(t, p.Start(context.Background()))
	p.Close()

	ch := p.Watch(context.Background())
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("watch channel of a closed provider stays open")
	}
}
