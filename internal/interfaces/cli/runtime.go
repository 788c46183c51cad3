// Package cli holds the process bootstrap shared by the sportello commands.
package cli

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/sportello-bot/sportello/internal/infrastructure/config"
	"github.com/sportello-bot/sportello/internal/infrastructure/lock"
	"github.com/sportello-bot/sportello/internal/shared/biztime"
	"github.com/sportello-bot/sportello/internal/shared/logger"
)

// ConfigFlag is the persistent flag naming an explicit config file.
const ConfigFlag = "config"

// Runtime is what every command needs before doing its own work.
type Runtime struct {
	Config *config.Config
	Logger logger.Interface
	Locks  lock.Provider

	redis *redis.Client
}

// Bootstrap loads the configuration, initializes logging and the business
// timezone, and picks the lock store.
func Bootstrap(ctx context.Context, cmd *cobra.Command) (*Runtime, error) {
	configFile, _ := cmd.Flags().GetString(ConfigFlag)

	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	if err := logger.Init(&cfg.Logger); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.NewLogger()

	if err := biztime.Init(cfg.Tickets.Timezone); err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", cfg.Tickets.Timezone, err)
	}

	provider, client, err := lock.NewProvider(ctx, cfg.Lock.RedisURL, cfg.Storage.LocksDir(), log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize lock store: %w", err)
	}

	return &Runtime{
		Config: cfg,
		Logger: log,
		Locks:  provider,
		redis:  client,
	}, nil
}

// Close releases the Redis connection, if any, and flushes the log output.
func (r *Runtime) Close() {
	if r.redis != nil {
		if err := r.redis.Close(); err != nil {
			r.Logger.Warnw("failed to close redis client", "error", err)
		}
	}
	_ = logger.Sync()
}
