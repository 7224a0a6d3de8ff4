package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/go_pizza/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a RedisCache instance
func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCache(client), mr
}

func testCart(sessionID string) *domain.Cart {
	return &domain.Cart{
		SessionID: sessionID,
		Lines: []domain.CartLine{
			{
				ID:          "line-1",
				ProductName: "Margherita",
				Category:    domain.CategoryPizza,
				Size:        "medium",
				Toppings:    []string{"basil"},
				UnitPrice:   decimal.RequireFromString("15.99"),
				Quantity:    2,
			},
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func TestGet_Success(t *testing.T) {
	cache, mr := setupTestRedis(t)

	data, err := json.Marshal(testCart("session-1"))
	require.NoError(t, err)
	require.NoError(t, mr.Set(cacheKey("session-1"), string(data)))

	result, err := cache.Get(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, "session-1", result.SessionID)
	require.Len(t, result.Lines, 1)
	assert.Equal(t, "Margherita", result.Lines[0].ProductName)
	assert.True(t, decimal.RequireFromString("15.99").Equal(result.Lines[0].UnitPrice))
}

func TestGet_CacheMiss(t *testing.T) {
	cache, _ := setupTestRedis(t)

	result, err := cache.Get(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, result)
}

func TestGet_InvalidJSON(t *testing.T) {
	cache, mr := setupTestRedis(t)

	require.NoError(t, mr.Set(cacheKey("session-1"), `{"session_id":`))

	_, err := cache.Get(context.Background(), "session-1")
	require.ErrorContains(t, err, "unmarshal cart failed")
}

func TestSet_Success(t *testing.T) {
	cache, mr := setupTestRedis(t)

	require.NoError(t, cache.Set(context.Background(), "session-2", testCart("session-2")))

	stored, err := mr.Get(cacheKey("session-2"))
	require.NoError(t, err)

	var storedCart domain.Cart
	require.NoError(t, json.Unmarshal([]byte(stored), &storedCart))
	assert.Equal(t, "session-2", storedCart.SessionID)
	assert.Len(t, storedCart.Lines, 1)
}

func TestSet_WithTTL(t *testing.T) {
	cache, mr := setupTestRedis(t)

	require.NoError(t, cache.Set(context.Background(), "session-3", &domain.Cart{SessionID: "session-3"}))

	ttl := mr.TTL(cacheKey("session-3"))
	assert.GreaterOrEqual(t, ttl, defaultBaseTTL, "TTL should be at least base TTL")
	assert.Less(t, ttl, defaultBaseTTL+maxJitter*time.Minute, "TTL should be below base + max jitter")
}

func TestDelete_Success(t *testing.T) {
	cache, mr := setupTestRedis(t)

	require.NoError(t, mr.Set(cacheKey("session-4"), "{}"))
	assert.True(t, mr.Exists(cacheKey("session-4")))

	require.NoError(t, cache.Delete(context.Background(), "session-4"))
	assert.False(t, mr.Exists(cacheKey("session-4")))
}

func TestDelete_NonExistentKey(t *testing.T) {
	cache, _ := setupTestRedis(t)
	assert.NoError(t, cache.Delete(context.Background(), "nonexistent"))
}

func TestCacheKey_Format(t *testing.T) {
	assert.Equal(t, "pizza-cart:test123", cacheKey("test123"))
}
