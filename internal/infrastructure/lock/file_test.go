package lock

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportello-bot/sportello/internal/shared/logger"
)

func newTestFileProvider(t *testing.T) *FileProvider {
	t.Helper()
	p, err := NewFileProvider(filepath.Join(t.TempDir(), "locks"), logger.NewNop())
	require.NoError(t, err)
	return p
}

func TestFileProvider_AcquireRelease(t *testing.T) {
	ctx := context.Background()
	p := newTestFileProvider(t)

	lease, granted, err := p.Acquire(ctx, "open:1:2", time.Minute)
	require.NoError(t, err)
	require.True(t, granted)
	assert.Equal(t, "open:1:2", lease.Key)
	assert.NotEmpty(t, lease.Token)

	pid, err := ReadPID(p.Path("open:1:2"))
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	token, err := ReadToken(p.Path("open:1:2"))
	require.NoError(t, err)
	assert.Equal(t, lease.Token, token)

	_, granted, err = p.Acquire(ctx, "open:1:2", time.Minute)
	require.NoError(t, err)
	assert.False(t, granted, "live lock must not be granted twice")

	require.NoError(t, p.Release(ctx, lease))
	assert.NoDirExists(t, p.Path("open:1:2"))

	// Releasing again is a no-op.
	require.NoError(t, p.Release(ctx, lease))
	require.NoError(t, p.Release(ctx, nil))

	_, granted, err = p.Acquire(ctx, "open:1:2", time.Minute)
	require.NoError(t, err)
	assert.True(t, granted)
}

func TestFileProvider_ReclaimsStaleLock(t *testing.T) {
	ctx := context.Background()
	p := newTestFileProvider(t)

	// A crashed holder leaves its directory behind without releasing.
	_, granted, err := p.Acquire(ctx, "close:42", time.Second)
	require.NoError(t, err)
	require.True(t, granted)

	old := time.Now().Add(-10 * time.Second)
	require.NoError(t, os.Chtimes(p.Path("close:42"), old, old))

	lease, granted, err := p.Acquire(ctx, "close:42", time.Second)
	require.NoError(t, err)
	assert.True(t, granted, "lock older than ttl must be reclaimed")
	require.NotNil(t, lease)
}

func TestFileProvider_RenewedLockIsNotReclaimed(t *testing.T) {
	ctx := context.Background()
	p := newTestFileProvider(t)

	lease, granted, err := p.Acquire(ctx, "instance", 2*time.Second)
	require.NoError(t, err)
	require.True(t, granted)

	old := time.Now().Add(-time.Minute)
	require.NoError(t, os.Chtimes(p.Path("instance"), old, old))
	require.NoError(t, p.Renew(ctx, lease))

	_, granted, err = p.Acquire(ctx, "instance", 2*time.Second)
	require.NoError(t, err)
	assert.False(t, granted)
}

func TestFileProvider_ReleaseLeavesForeignLock(t *testing.T) {
	ctx := context.Background()
	p := newTestFileProvider(t)

	lease, granted, err := p.Acquire(ctx, "log:1:2:3", time.Minute)
	require.NoError(t, err)
	require.True(t, granted)

	// Another holder reclaimed the directory.
	dir := p.Path("log:1:2:3")
	require.NoError(t, os.WriteFile(filepath.Join(dir, TokenFile), []byte("someone-else\n"), 0o644))

	require.NoError(t, p.Release(ctx, lease))
	assert.DirExists(t, dir)
	assert.ErrorIs(t, p.Renew(ctx, lease), ErrLeaseLost)
}

func TestFileProvider_LateReleaseAfterReclaimInSameProcess(t *testing.T) {
	ctx := context.Background()
	p := newTestFileProvider(t)

	for i := 0; i < 20; i++ {
		stale, granted, err := p.Acquire(ctx, "close:7", 50*time.Millisecond)
		require.NoError(t, err)
		require.True(t, granted)

		old := time.Now().Add(-time.Second)
		require.NoError(t, os.Chtimes(p.Path("close:7"), old, old))

		fresh, granted, err := p.Acquire(ctx, "close:7", 50*time.Millisecond)
		require.NoError(t, err)
		require.True(t, granted, "stale lock must be reclaimed")
		assert.NotEqual(t, stale.Token, fresh.Token)

		require.NoError(t, p.Release(ctx, stale))
		require.DirExists(t, p.Path("close:7"), "late release must not remove the new holder's lock")
		assert.ErrorIs(t, p.Renew(ctx, stale), ErrLeaseLost)

		_, granted, err = p.Acquire(ctx, "close:7", time.Minute)
		require.NoError(t, err)
		assert.False(t, granted)

		require.NoError(t, p.Release(ctx, fresh))
		require.NoDirExists(t, p.Path("close:7"))
	}
}

func TestFileProvider_RenewMissingLock(t *testing.T) {
	ctx := context.Background()
	p := newTestFileProvider(t)

	lease, _, err := p.Acquire(ctx, "panel:1:2", time.Minute)
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(p.Path("panel:1:2")))

	assert.ErrorIs(t, p.Renew(ctx, lease), ErrLeaseLost)
}

func TestFileProvider_ConcurrentAcquireGrantsOne(t *testing.T) {
	ctx := context.Background()
	p := newTestFileProvider(t)

	var wg sync.WaitGroup
	var granted atomic.Int32
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := p.Acquire(ctx, "open:guild:user", time.Minute)
			assert.NoError(t, err)
			if ok {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), granted.Load())
}

func TestFileProvider_CancelledContext(t *testing.T) {
	p := newTestFileProvider(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, granted, err := p.Acquire(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, granted)
}

func TestAcquireWithRetry(t *testing.T) {
	ctx := context.Background()
	p := newTestFileProvider(t)

	held, granted, err := p.Acquire(ctx, "log:index", time.Minute)
	require.NoError(t, err)
	require.True(t, granted)

	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = p.Release(ctx, held)
	}()

	lease, granted, err := AcquireWithRetry(ctx, p, "log:index", time.Minute, 50, 10*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, granted)
	assert.NotNil(t, lease)

	_, granted, err = AcquireWithRetry(ctx, p, "log:index", time.Minute, 2, time.Millisecond)
	require.NoError(t, err)
	assert.False(t, granted)
}

func TestFileProvider_Break(t *testing.T) {
	ctx := context.Background()
	p := newTestFileProvider(t)

	broken, err := p.Break(ctx, "panel:9")
	require.NoError(t, err)
	assert.False(t, broken)

	_, granted, err := p.Acquire(ctx, "panel:9", time.Hour)
	require.NoError(t, err)
	require.True(t, granted)

	broken, err = p.Break(ctx, "panel:9")
	require.NoError(t, err)
	assert.True(t, broken)

	_, granted, err = p.Acquire(ctx, "panel:9", time.Hour)
	require.NoError(t, err)
	assert.True(t, granted)
}
