package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sportello-bot/sportello/internal/shared/logger"
)

// NewProvider returns a RedisProvider when redisURL is set and the server
// answers a ping, and a FileProvider rooted at dir otherwise. The returned
// client is nil for the file backend; the caller closes it on shutdown.
func NewProvider(ctx context.Context, redisURL, dir string, log logger.Interface) (Provider, *redis.Client, error) {
	if redisURL != "" {
		client, err := dialRedis(ctx, redisURL)
		if err == nil {
			log.Infow("using redis lock store", "address", client.Options().Addr)
			return NewRedisProvider(client, log.Named("lock.redis")), client, nil
		}
		log.Warnw("redis lock store unavailable, falling back to filesystem locks",
			"error", err,
			"dir", dir,
		)
	}

	fp, err := NewFileProvider(dir, log.Named("lock.file"))
	if err != nil {
		return nil, nil, err
	}
	log.Infow("using filesystem lock store", "dir", dir)
	return fp, nil, nil
}

func dialRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
