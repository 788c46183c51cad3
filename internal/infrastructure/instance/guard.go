// Package instance keeps a single bot process running per Discord account.
package instance

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/sportello-bot/sportello/internal/infrastructure/lock"
	"github.com/sportello-bot/sportello/internal/shared/logger"
)

// ErrAlreadyRunning is returned by Claim when a live process holds the lock.
var ErrAlreadyRunning = errors.New("another instance is already running for this account")

// Guard owns the instance lock directory <locksDir>/instance-<account>.
// When a shared lock provider is configured the guard also holds
// instance:<account> there, so processes on different hosts exclude each
// other too.
type Guard struct {
	dir     string
	account string
	ttl     time.Duration
	shared  lock.Provider
	logger  logger.Interface

	mu      sync.Mutex
	lease   *lock.Lease
	claimed bool
	pid     int
	alive   func(pid int) bool
	now     func() time.Time
}

// NewGuard builds a guard. shared may be nil or a FileProvider, in which case
// only the local directory is used.
func NewGuard(locksDir, account string, ttl time.Duration, shared lock.Provider, log logger.Interface) *Guard {
	if _, ok := shared.(*lock.FileProvider); ok {
		shared = nil
	}
	return &Guard{
		dir:     filepath.Join(locksDir, "instance-"+lock.SanitizeKey(account)),
		account: account,
		ttl:     ttl,
		shared:  shared,
		logger:  log,
		pid:     os.Getpid(),
		alive:   processAlive,
		now:     time.Now,
	}
}

// Dir returns the lock directory path.
func (g *Guard) Dir() string { return g.dir }

// Claim takes the instance lock. A lock whose owner pid is alive and whose
// heartbeat is within ttl aborts with ErrAlreadyRunning; anything else is
// stale and is removed first.
func (g *Guard) Claim(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(g.dir), 0o755); err != nil {
		return fmt.Errorf("create locks dir: %w", err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		err := os.Mkdir(g.dir, 0o755)
		if err == nil {
			break
		}
		if !errors.Is(err, fs.ErrExist) || attempt > 0 {
			return fmt.Errorf("create instance lock %s: %w", g.dir, err)
		}
		if err := g.reclaimIfStale(); err != nil {
			return err
		}
	}

	if err := os.WriteFile(filepath.Join(g.dir, lock.PIDFile), []byte(strconv.Itoa(g.pid)+"\n"), 0o644); err != nil {
		os.RemoveAll(g.dir)
		return fmt.Errorf("write instance pid: %w", err)
	}
	g.claimed = true

	if g.shared != nil {
		lease, granted, err := g.shared.Acquire(ctx, "instance:"+g.account, g.ttl)
		if err != nil {
			g.releaseLocked()
			return fmt.Errorf("claim shared instance lock: %w", err)
		}
		if !granted {
			g.releaseLocked()
			return fmt.Errorf("%w (held in %s lock store)", ErrAlreadyRunning, g.shared.Name())
		}
		g.lease = lease
	}

	g.logger.Infow("instance lock claimed", "dir", g.dir, "pid", g.pid)
	return nil
}

func (g *Guard) reclaimIfStale() error {
	pid, pidErr := lock.ReadPID(g.dir)
	info, statErr := os.Stat(g.dir)
	if statErr != nil {
		if errors.Is(statErr, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat instance lock: %w", statErr)
	}

	age := g.now().Sub(info.ModTime())
	if pidErr == nil && pid != g.pid && g.alive(pid) && age <= g.ttl {
		return fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, pid)
	}

	g.logger.Warnw("removing stale instance lock",
		"dir", g.dir,
		"owner_pid", pid,
		"age", age.Round(time.Second),
	)
	if err := os.RemoveAll(g.dir); err != nil {
		return fmt.Errorf("remove stale instance lock: %w", err)
	}
	return nil
}

// Renew refreshes the heartbeat. It is scheduled on a fixed interval for the
// lifetime of the process.
func (g *Guard) Renew(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.claimed {
		return nil
	}

	now := g.now()
	if err := os.Chtimes(g.dir, now, now); err != nil {
		return fmt.Errorf("touch instance lock: %w", err)
	}
	if g.lease != nil {
		if err := g.shared.Renew(ctx, g.lease); err != nil {
			return fmt.Errorf("renew shared instance lock: %w", err)
		}
	}
	return nil
}

// Release removes the lock. It is safe to call more than once and from the
// signal and panic paths of the serve command.
func (g *Guard) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.releaseLocked()
}

func (g *Guard) releaseLocked() {
	if !g.claimed {
		return
	}
	g.claimed = false

	if g.lease != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := g.shared.Release(ctx, g.lease); err != nil {
			g.logger.Warnw("failed to release shared instance lock", "error", err)
		}
		cancel()
		g.lease = nil
	}

	if pid, err := lock.ReadPID(g.dir); err == nil && pid != g.pid {
		g.logger.Warnw("instance lock taken over, leaving it in place", "owner_pid", pid)
		return
	}
	if err := os.RemoveAll(g.dir); err != nil {
		g.logger.Errorw("failed to remove instance lock", "dir", g.dir, "error", err)
		return
	}
	g.logger.Infow("instance lock released", "dir", g.dir)
}

func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = process.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}
