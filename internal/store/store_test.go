package store

import (
	"context"
	"os"
	"testing"
	"time"

	"anypos-register/internal/models"
	"anypos-register/internal/services/pos"
	"anypos-register/internal/services/session"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCart() pos.Cart {
	var c pos.Cart
	c.AddItem(models.Product{ID: 1, Name: "coffee", SellingPrice: decimal.RequireFromString("3.50")})
	c.AddItem(models.Product{ID: 1, Name: "coffee", SellingPrice: decimal.RequireFromString("3.50")})
	return c
}

// newRedisStore connects to REDIS_TEST_ADDR, skipping when it is unset.
func newRedisStore(t *testing.T) (*RedisStore, string) {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())
	return NewRedisStore(client), "test-" + uuid.NewString()
}

func TestMemoryStoreCartRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	c, err := s.LoadCart(ctx, "till-1")
	require.NoError(t, err)
	assert.Nil(t, c)

	cart := sampleCart()
	require.NoError(t, s.SaveCart(ctx, "till-1", cart))
	cart.SetQuantity(1, 9)

	c, err = s.LoadCart(ctx, "till-1")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, 2, c.Lines[0].Quantity)
}

func TestMemoryStoreSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.SaveSession(ctx, "till-1", session.Session{Credential: session.Credential{Token: "t"}, State: session.StateReady}))
	got, err := s.LoadSession(ctx, "till-1")
	require.NoError(t, err)
	assert.Equal(t, "t", got.Credential.Token)

	require.NoError(t, s.DeleteSession(ctx, "till-1"))
	got, err = s.LoadSession(ctx, "till-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionTTL(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, DefaultSessionTTL, SessionTTL(time.Time{}, now))
	assert.Equal(t, 30*time.Minute, SessionTTL(now.Add(30*time.Minute), now))
	assert.Equal(t, time.Second, SessionTTL(now.Add(-time.Minute), now))
}

func TestRedisStoreCart(t *testing.T) {
	s, id := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveCart(ctx, id, sampleCart()))
	c, err := s.LoadCart(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, 2, c.Lines[0].Quantity)
	assert.True(t, c.Lines[0].UnitPrice.Equal(decimal.RequireFromString("3.50")))

	ttl, err := s.client.TTL(ctx, CartKeyPrefix+id).Result()
	require.NoError(t, err)
	assert.True(t, ttl > 0 && ttl <= CartTTL)

	require.NoError(t, s.SaveCart(ctx, id, pos.Cart{}))
	c, err = s.LoadCart(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestRedisStoreSession(t *testing.T) {
	s, id := newRedisStore(t)
	ctx := context.Background()

	sess := session.Session{
		Credential: session.Credential{Token: "tok", Username: "alice", ExpiresAt: time.Now().Add(time.Hour)},
		State:      session.StateNeedsOpeningBalance,
	}
	require.NoError(t, s.SaveSession(ctx, id, sess))

	got, err := s.LoadSession(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice", got.Credential.Username)
	assert.Equal(t, session.StateNeedsOpeningBalance, got.State)

	require.NoError(t, s.DeleteSession(ctx, id))
	got, err = s.LoadSession(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got)
}
