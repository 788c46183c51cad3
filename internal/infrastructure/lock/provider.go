// Package lock provides named, TTL-bound exclusive leases.
//
// Two backends implement Provider: RedisProvider, used when a shared store is
// configured, and FileProvider, which relies on the atomicity of mkdir and is
// always available. Acquisition never queues: a lease that is held elsewhere
// is reported as not granted and the caller decides what to tell its actor.
package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrLeaseLost is returned by Renew when the lease expired and was taken by
// another holder.
var ErrLeaseLost = errors.New("lock: lease no longer held")

// Lease is a granted lock.
type Lease struct {
	Key        string
	Holder     string
	Token      string
	AcquiredAt time.Time
	TTL        time.Duration

	// dir identifies the directory a FileProvider created, so that release
	// never removes a directory that a later acquirer recreated.
	dir os.FileInfo
}

// Provider acquires and releases leases.
type Provider interface {
	// Acquire tries to take key for ttl. granted is false when another holder
	// owns a live lease; err is reserved for backend failures.
	Acquire(ctx context.Context, key string, ttl time.Duration) (lease *Lease, granted bool, err error)
	// Release drops the lease. Releasing an already released or expired lease
	// is not an error.
	Release(ctx context.Context, lease *Lease) error
	// Renew pushes the lease expiry forward by its TTL.
	Renew(ctx context.Context, lease *Lease) error
	// Name identifies the backend in logs.
	Name() string
}

// Breaker removes a lease regardless of who holds it. It backs the operator
// unlock command and is never used by trigger handlers.
type Breaker interface {
	// Break reports whether a lease existed for key.
	Break(ctx context.Context, key string) (bool, error)
}

// AcquireWithRetry makes up to attempts tries spaced by delay. It exists for
// short critical sections over shared index files, where contention is brief
// and dropping the write would lose data. Trigger handlers use Acquire.
func AcquireWithRetry(ctx context.Context, p Provider, key string, ttl time.Duration, attempts int, delay time.Duration) (*Lease, bool, error) {
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		lease, granted, err := p.Acquire(ctx, key, ttl)
		if err != nil || granted {
			return lease, granted, err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, false, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, false, nil
}

// Holder identifies this process as a lock holder.
func Holder() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return fmt.Sprintf("%s:%d", host, os.Getpid())
}
