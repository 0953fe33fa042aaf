package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a RedisCache instance
func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	return NewRedisCache(client), mr
}

func sampleItems() []domain.CartItem {
	return []domain.CartItem{
		{ID: "a", Fields: map[string]any{"title": "Boll", "price": 49.0}},
		{ID: "b", Fields: map[string]any{"title": "Drake", "price": 120.0}},
	}
}

func TestGet_Success(t *testing.T) {
	cache, mr := setupTestRedis(t)

	data, err := json.Marshal(sampleItems())
	require.NoError(t, err)
	require.NoError(t, mr.Set(cacheKey("Kundvagn"), string(data)))

	items, err := cache.Get(context.Background(), "Kundvagn")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ID)
	assert.Equal(t, "Boll", items[0].Fields["title"])
}

func TestGet_CacheMiss(t *testing.T) {
	cache, _ := setupTestRedis(t)

	items, err := cache.Get(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, items)
}

func TestGet_InvalidJSON(t *testing.T) {
	cache, mr := setupTestRedis(t)
	require.NoError(t, mr.Set(cacheKey("Kundvagn"), `[{"id":"a"`))

	_, err := cache.Get(context.Background(), "Kundvagn")
	require.ErrorContains(t, err, "unmarshal cart failed")
}

func TestSet_StoresFlatItems(t *testing.T) {
	cache, mr := setupTestRedis(t)

	require.NoError(t, cache.Set(context.Background(), "Kundvagn", sampleItems()))

	stored, err := mr.Get(cacheKey("Kundvagn"))
	require.NoError(t, err)
	assert.JSONEq(t,
		`[{"id":"a","title":"Boll","price":49},{"id":"b","title":"Drake","price":120}]`,
		stored)
}

func TestSet_EmptyCart(t *testing.T) {
	cache, _ := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "Kundvagn", nil))

	items, err := cache.Get(ctx, "Kundvagn")
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NotNil(t, items)
}

func TestSet_WithTTL(t *testing.T) {
	cache, mr := setupTestRedis(t)

	require.NoError(t, cache.Set(context.Background(), "Kundvagn", sampleItems()))

	ttl := mr.TTL(cacheKey("Kundvagn"))
	assert.True(t, ttl >= 15*time.Minute, "TTL should be at least base TTL")
	assert.True(t, ttl <= 20*time.Minute, "TTL should be base + max jitter")
}

func TestDelete(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "Kundvagn", sampleItems()))
	assert.True(t, mr.Exists(cacheKey("Kundvagn")))

	require.NoError(t, cache.Delete(ctx, "Kundvagn"))
	assert.False(t, mr.Exists(cacheKey("Kundvagn")))

	// deleting a missing key is not an error
	assert.NoError(t, cache.Delete(ctx, "Kundvagn"))
}

func TestCacheKey_Format(t *testing.T) {
	assert.Equal(t, "cart:Kundvagn", cacheKey("Kundvagn"))
}
