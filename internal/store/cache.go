package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/onboardly/backend/internal/models"
)

const (
	userCacheKey = "users:all"
	userCacheTTL = time.Minute
)

// UserCache keeps the full user listing in Redis for a short window so the
// read-heavy list routes don't hit Postgres on every request. The rows are
// stored through the User JSON encoding, so password hashes never reach
// Redis. A nil cache (or nil client) is a no-op.
type UserCache struct {
	rdb *redis.Client
}

func NewUserCache(rdb *redis.Client) *UserCache {
	return &UserCache{rdb: rdb}
}

// Get returns the cached listing and whether it was present. Cache errors
// degrade to a miss.
func (c *UserCache) Get(ctx context.Context) ([]models.User, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, userCacheKey).Bytes()
	if err != nil {
		return nil, false
	}
	var users []models.User
	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, false
	}
	return users, true
}

// Set stores the listing for userCacheTTL.
func (c *UserCache) Set(ctx context.Context, users []models.User) {
	if c == nil || c.rdb == nil {
		return
	}
	raw, err := json.Marshal(users)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, userCacheKey, raw, userCacheTTL).Err()
}

// Invalidate drops the cached listing. Called after every write.
func (c *UserCache) Invalidate(ctx context.Context) {
	if c == nil || c.rdb == nil {
		return
	}
	_ = c.rdb.Del(ctx, userCacheKey).Err()
}
