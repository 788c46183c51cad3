// Package idempotency collapses duplicate triggers into no-ops by claiming a
// derived key on the lock provider before any work is done.
package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/sportello-bot/sportello/internal/infrastructure/lock"
	"github.com/sportello-bot/sportello/internal/shared/logger"
)

// Key prefixes partition the lock namespace so unrelated resources never
// contend.
const (
	PrefixOpen    = "open"
	PrefixClose   = "close"
	PrefixEvent   = "event"
	PrefixPanel   = "panel"
	PrefixLog     = "log"
	PrefixWelcome = "welcome"
)

func OpenKey(guildID, userID string) string {
	return fmt.Sprintf("%s:%s:%s", PrefixOpen, guildID, userID)
}

func CloseKey(channelID string) string {
	return fmt.Sprintf("%s:%s", PrefixClose, channelID)
}

func EventKey(eventID string) string {
	return fmt.Sprintf("%s:%s", PrefixEvent, eventID)
}

func PanelKey(guildID, channelID string) string {
	return fmt.Sprintf("%s:%s:%s", PrefixPanel, guildID, channelID)
}

// LogKey identifies the audit record of one close. closedAt is truncated to
// bucket so that retried close triggers landing in the same bucket share the
// key.
func LogKey(guildID, channelID string, closedAt time.Time, bucket time.Duration) string {
	if bucket <= 0 {
		bucket = time.Minute
	}
	return fmt.Sprintf("%s:%s:%s:%d", PrefixLog, guildID, channelID, closedAt.Truncate(bucket).Unix())
}

// WelcomeKey identifies the welcome notice of a ticket channel or a member.
func WelcomeKey(scope, id string) string {
	return fmt.Sprintf("%s:%s:%s", PrefixWelcome, scope, id)
}

// Guard wraps the lock provider with the two claim shapes triggers need.
type Guard struct {
	provider lock.Provider
	ttl      time.Duration
	logger   logger.Interface
}

// NewGuard creates a Guard whose claims last ttl unless a caller overrides it.
func NewGuard(provider lock.Provider, ttl time.Duration, log logger.Interface) *Guard {
	return &Guard{
		provider: provider,
		ttl:      ttl,
		logger:   log,
	}
}

// Provider returns the underlying lock provider.
func (g *Guard) Provider() lock.Provider {
	return g.provider
}

// Claim takes key and keeps it until its TTL lapses. A false result means the
// same logical operation already ran or is running and the trigger must be
// dropped.
func (g *Guard) Claim(ctx context.Context, key string) (bool, error) {
	return g.ClaimFor(ctx, key, g.ttl)
}

// ClaimFor is Claim with an explicit TTL.
func (g *Guard) ClaimFor(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	_, granted, err := g.provider.Acquire(ctx, key, ttl)
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	if !granted {
		g.logger.Debugw("duplicate trigger dropped", "key", key)
	}
	return granted, nil
}

// Run takes key for ttl, runs fn and releases key on every exit path,
// including a panic in fn. ran is false when key was held elsewhere.
func (g *Guard) Run(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) (ran bool, err error) {
	lease, granted, err := g.provider.Acquire(ctx, key, ttl)
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", key, err)
	}
	if !granted {
		return false, nil
	}
	defer g.release(lease)

	return true, fn(ctx)
}

// Hold takes key for ttl and returns a release func for callers whose
// critical section spans more than one function. release is nil when the key
// was not granted.
func (g *Guard) Hold(ctx context.Context, key string, ttl time.Duration) (release func(), err error) {
	lease, granted, err := g.provider.Acquire(ctx, key, ttl)
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", key, err)
	}
	if !granted {
		return nil, nil
	}
	return func() { g.release(lease) }, nil
}

func (g *Guard) release(lease *lock.Lease) {
	// Release must outlive a cancelled trigger context.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := g.provider.Release(ctx, lease); err != nil {
		g.logger.Warnw("failed to release lock", "key", lease.Key, "error", err)
	}
}
