package postgres

import (
	"context"
	"encoding/json"
	"time"

	"kids-content-billing/internal/domain/model"
	"kids-content-billing/internal/domain/ports/repository"
	"kids-content-billing/internal/infra/metrics"
	red "kids-content-billing/internal/infra/redis"
)

var _ repository.UserRepository = (*userRepoCacheDecorator)(nil)

// userRepoCacheDecorator serves premium-projection reads from redis.
// Transactional reads bypass the cache: they take row locks for a
// read-modify-write and must see committed state.
type userRepoCacheDecorator struct {
	inner repository.UserRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewUserRepoCacheDecorator(inner repository.UserRepository, cache red.RedisClient) repository.UserRepository {
	return &userRepoCacheDecorator{
		inner: inner,
		cache: cache,
		ttl:   1 * time.Hour,
	}
}

func userCacheKey(id string) string { return "user:id:" + id }

// Save invalidates before writing so a concurrent read repopulates from
// the store rather than resurrecting the stale entry.
func (d *userRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	_ = d.cache.Del(ctx, userCacheKey(u.ID))
	return d.inner.Save(ctx, tx, u)
}

func (d *userRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	if tx != nil {
		metrics.IncCacheRequest("user", "bypass")
		return d.inner.FindByID(ctx, tx, id)
	}

	key := userCacheKey(id)
	if val, err := d.cache.Get(ctx, key); err == nil {
		var user model.User
		if json.Unmarshal([]byte(val), &user) == nil {
			metrics.IncCacheRequest("user", "hit")
			return &user, nil
		}
	}

	metrics.IncCacheRequest("user", "miss")
	user, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if bytes, err := json.Marshal(user); err == nil {
		_ = d.cache.Set(ctx, key, bytes, d.ttl)
	}
	return user, nil
}
