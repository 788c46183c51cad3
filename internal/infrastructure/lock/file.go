package lock

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sportello-bot/sportello/internal/shared/logger"
)

const (
	// PIDFile records the owner pid inside every lock directory.
	PIDFile = "pid.txt"
	// TokenFile records the lease token of the holder that created the directory.
	TokenFile = "token.txt"
)

// FileProvider implements Provider on a local directory. os.Mkdir is the
// atomic create-if-absent primitive; a lock directory whose modification time
// is older than the requested TTL is treated as abandoned and reclaimed once.
type FileProvider struct {
	root     string
	holder   string
	logger   logger.Interface
	now      func() time.Time
	newToken func() string
}

// NewFileProvider creates the root directory if needed.
func NewFileProvider(root string, log logger.Interface) (*FileProvider, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create lock root %s: %w", root, err)
	}
	return &FileProvider{
		root:     root,
		holder:   Holder(),
		logger:   log,
		now:      time.Now,
		newToken: uuid.NewString,
	}, nil
}

func (p *FileProvider) Name() string { return "file" }

// Path returns the lock directory for key.
func (p *FileProvider) Path(key string) string {
	return filepath.Join(p.root, SanitizeKey(key))
}

func (p *FileProvider) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	dir := p.Path(key)
	for attempt := 0; attempt < 2; attempt++ {
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return p.claimed(key, dir, ttl)
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, false, fmt.Errorf("create lock dir %s: %w", dir, err)
		}
		if attempt > 0 {
			break
		}

		info, err := os.Stat(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				// Released between our mkdir and stat.
				continue
			}
			return nil, false, fmt.Errorf("stat lock dir %s: %w", dir, err)
		}
		age := p.now().Sub(info.ModTime())
		if ttl <= 0 || age <= ttl {
			return nil, false, nil
		}

		p.logger.Warnw("reclaiming stale lock",
			"key", key,
			"age", age.Round(time.Millisecond),
			"ttl", ttl,
		)
		if err := os.RemoveAll(dir); err != nil {
			return nil, false, fmt.Errorf("remove stale lock dir %s: %w", dir, err)
		}
	}
	return nil, false, nil
}

func (p *FileProvider) claimed(key, dir string, ttl time.Duration) (*Lease, bool, error) {
	token := p.newToken()
	if err := os.WriteFile(filepath.Join(dir, TokenFile), []byte(token+"\n"), 0o644); err != nil {
		os.RemoveAll(dir)
		return nil, false, fmt.Errorf("write lock token: %w", err)
	}
	pid := strconv.Itoa(os.Getpid())
	if err := os.WriteFile(filepath.Join(dir, PIDFile), []byte(pid+"\n"), 0o644); err != nil {
		os.RemoveAll(dir)
		return nil, false, fmt.Errorf("write lock owner: %w", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		os.RemoveAll(dir)
		return nil, false, fmt.Errorf("stat new lock dir: %w", err)
	}
	return &Lease{
		Key:        key,
		Holder:     p.holder,
		Token:      token,
		AcquiredAt: p.now(),
		TTL:        ttl,
		dir:        info,
	}, true, nil
}

func (p *FileProvider) Release(_ context.Context, lease *Lease) error {
	if lease == nil {
		return nil
	}
	dir := p.Path(lease.Key)
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat lock dir %s: %w", dir, err)
	}
	if !p.owns(dir, info, lease) {
		p.logger.Warnw("lock was reclaimed by another holder, leaving it in place", "key", lease.Key)
		return nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove lock dir %s: %w", dir, err)
	}
	return nil
}

func (p *FileProvider) Break(_ context.Context, key string) (bool, error) {
	dir := p.Path(key)
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat lock dir %s: %w", dir, err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return false, fmt.Errorf("remove lock dir %s: %w", dir, err)
	}
	p.logger.Warnw("lock broken by operator", "key", key)
	return true, nil
}

func (p *FileProvider) Renew(_ context.Context, lease *Lease) error {
	dir := p.Path(lease.Key)
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrLeaseLost
		}
		return fmt.Errorf("stat lock dir %s: %w", dir, err)
	}
	if !p.owns(dir, info, lease) {
		return ErrLeaseLost
	}
	now := p.now()
	if err := os.Chtimes(dir, now, now); err != nil {
		return fmt.Errorf("touch lock dir %s: %w", dir, err)
	}
	return nil
}

// owns reports whether dir is still the directory lease created. The token
// differs for every claim, so a reclaim by another goroutine of this process
// is detected even when the filesystem reuses the removed directory's inode.
func (p *FileProvider) owns(dir string, info os.FileInfo, lease *Lease) bool {
	if lease.dir != nil && !os.SameFile(info, lease.dir) {
		return false
	}
	token, err := ReadToken(dir)
	if err != nil {
		// Not written yet by a new holder, or removed by hand.
		return false
	}
	return token == lease.Token
}

// ReadToken returns the lease token recorded in a lock directory.
func ReadToken(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, TokenFile))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// ReadPID returns the owner pid recorded in a lock directory.
func ReadPID(dir string) (int, error) {
	data, err := os.ReadFile(filepath.Join(dir, PIDFile))
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", PIDFile, err)
	}
	return pid, nil
}
