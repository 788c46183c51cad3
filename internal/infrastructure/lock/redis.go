package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/sportello-bot/sportello/internal/shared/logger"
)

// keyPrefix namespaces lock keys in a shared Redis.
const keyPrefix = "sportello:lock:"

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`)

// renewScript extends the key only if it still holds our token.
var renewScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return 0
`)

// RedisProvider implements Provider with SET NX PX. Every lease carries a
// random token so only its holder can release or renew it.
type RedisProvider struct {
	client   *redis.Client
	holder   string
	logger   logger.Interface
	newToken func() string
}

// NewRedisProvider creates a new RedisProvider instance
func NewRedisProvider(client *redis.Client, log logger.Interface) *RedisProvider {
	return &RedisProvider{
		client:   client,
		holder:   Holder(),
		logger:   log,
		newToken: uuid.NewString,
	}
}

func (p *RedisProvider) Name() string { return "redis" }

func (p *RedisProvider) buildKey(key string) string {
	return keyPrefix + key
}

func (p *RedisProvider) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, bool, error) {
	token := p.newToken()
	acquired, err := p.client.SetNX(ctx, p.buildKey(key), token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !acquired {
		return nil, false, nil
	}
	return &Lease{
		Key:        key,
		Holder:     p.holder,
		Token:      token,
		AcquiredAt: time.Now(),
		TTL:        ttl,
	}, true, nil
}

func (p *RedisProvider) Release(ctx context.Context, lease *Lease) error {
	if lease == nil {
		return nil
	}
	deleted, err := releaseScript.Run(ctx, p.client, []string{p.buildKey(lease.Key)}, lease.Token).Int()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("failed to release lock %s: %w", lease.Key, err)
	}
	if deleted == 0 {
		p.logger.Debugw("lock already expired or taken over at release", "key", lease.Key)
	}
	return nil
}

func (p *RedisProvider) Break(ctx context.Context, key string) (bool, error) {
	deleted, err := p.client.Del(ctx, p.buildKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to break lock %s: %w", key, err)
	}
	if deleted > 0 {
		p.logger.Warnw("lock broken by operator", "key", key)
	}
	return deleted > 0, nil
}

func (p *RedisProvider) Renew(ctx context.Context, lease *Lease) error {
	ok, err := renewScript.Run(ctx, p.client,
		[]string{p.buildKey(lease.Key)},
		lease.Token, lease.TTL.Milliseconds(),
	).Int()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("failed to renew lock %s: %w", lease.Key, err)
	}
	if ok == 0 {
		return ErrLeaseLost
	}
	return nil
}
