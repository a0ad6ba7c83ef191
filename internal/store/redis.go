package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"anypos-register/internal/services/pos"
	"anypos-register/internal/services/session"

	"github.com/go-redis/redis/v8"
)

const (
	CartKeyPrefix    = "register:cart:"
	SessionKeyPrefix = "register:session:"

	CartTTL = 12 * time.Hour
	// DefaultSessionTTL applies when the token carries no expiry.
	DefaultSessionTTL = 8 * time.Hour
)

// RedisStore keeps register state in Redis as JSON so a restarted register
// picks up its cart and operator where it left off.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func (r *RedisStore) LoadCart(ctx context.Context, registerID string) (*pos.Cart, error) {
	var cart pos.Cart
	found, err := r.get(ctx, CartKeyPrefix+registerID, &cart)
	if err != nil || !found {
		return nil, err
	}
	return &cart, nil
}

func (r *RedisStore) SaveCart(ctx context.Context, registerID string, cart pos.Cart) error {
	key := CartKeyPrefix + registerID
	if cart.IsEmpty() {
		if err := r.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("failed to delete cart: %w", err)
		}
		return nil
	}
	return r.set(ctx, key, cart, CartTTL)
}

func (r *RedisStore) LoadSession(ctx context.Context, registerID string) (*session.Session, error) {
	var s session.Session
	found, err := r.get(ctx, SessionKeyPrefix+registerID, &s)
	if err != nil || !found {
		return nil, err
	}
	return &s, nil
}

// SaveSession expires the key together with the token.
func (r *RedisStore) SaveSession(ctx context.Context, registerID string, s session.Session) error {
	return r.set(ctx, SessionKeyPrefix+registerID, s, SessionTTL(s.Credential.ExpiresAt, r.now()))
}

func (r *RedisStore) DeleteSession(ctx context.Context, registerID string) error {
	if err := r.client.Del(ctx, SessionKeyPrefix+registerID).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (r *RedisStore) get(ctx context.Context, key string, v interface{}) (bool, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	if err := json.Unmarshal(val, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return true, nil
}

func (r *RedisStore) set(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// SessionTTL is the time left on a token, or DefaultSessionTTL when the
// token does not say.
func SessionTTL(expiresAt, now time.Time) time.Duration {
	if expiresAt.IsZero() {
		return DefaultSessionTTL
	}
	ttl := expiresAt.Sub(now)
	if ttl < time.Second {
		return time.Second
	}
	return ttl
}
