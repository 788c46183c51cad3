package instance

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportello-bot/sportello/internal/infrastructure/lock"
	"github.com/sportello-bot/sportello/internal/shared/logger"
)

func writeOwner(t *testing.T, dir string, pid string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, lock.PIDFile), []byte(pid+"\n"), 0o644))
	require.NoError(t, os.Chtimes(dir, mtime, mtime))
}

func TestGuard_ClaimAndRelease(t *testing.T) {
	ctx := context.Background()
	g := NewGuard(t.TempDir(), "1234", time.Minute, nil, logger.NewNop())

	require.NoError(t, g.Claim(ctx))
	pid, err := lock.ReadPID(g.Dir())
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	require.NoError(t, g.Renew(ctx))

	g.Release()
	assert.NoDirExists(t, g.Dir())
	g.Release()
}

func TestGuard_LiveOwnerAborts(t *testing.T) {
	ctx := context.Background()
	g := NewGuard(t.TempDir(), "1234", time.Minute, nil, logger.NewNop())
	g.alive = func(int) bool { return true }

	writeOwner(t, g.Dir(), "4242", time.Now())

	err := g.Claim(ctx)
	require.ErrorIs(t, err, ErrAlreadyRunning)
	assert.DirExists(t, g.Dir(), "a live owner's lock must be left alone")

	// Releasing a guard that never claimed must not touch the owner's lock.
	g.Release()
	assert.DirExists(t, g.Dir())
}

func TestGuard_DeadOwnerIsReclaimed(t *testing.T) {
	ctx := context.Background()
	g := NewGuard(t.TempDir(), "1234", time.Minute, nil, logger.NewNop())
	g.alive = func(int) bool { return false }

	writeOwner(t, g.Dir(), "4242", time.Now())

	require.NoError(t, g.Claim(ctx))
	pid, err := lock.ReadPID(g.Dir())
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
}

func TestGuard_SilentOwnerIsReclaimed(t *testing.T) {
	ctx := context.Background()
	g := NewGuard(t.TempDir(), "1234", time.Minute, nil, logger.NewNop())
	// The pid exists but belongs to an unrelated process after a restart.
	g.alive = func(int) bool { return true }

	writeOwner(t, g.Dir(), "4242", time.Now().Add(-5*time.Minute))

	require.NoError(t, g.Claim(ctx))
}

func TestGuard_GarbagePIDIsReclaimed(t *testing.T) {
	ctx := context.Background()
	g := NewGuard(t.TempDir(), "1234", time.Minute, nil, logger.NewNop())

	writeOwner(t, g.Dir(), "not-a-pid", time.Now())

	require.NoError(t, g.Claim(ctx))
}

func TestGuard_SharedStoreExcludesOtherHosts(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	shared := lock.NewRedisProvider(client, logger.NewNop())

	first := NewGuard(t.TempDir(), "bot", time.Minute, shared, logger.NewNop())
	require.NoError(t, first.Claim(ctx))

	// Same account, different host: separate locks directory.
	second := NewGuard(t.TempDir(), "bot", time.Minute, shared, logger.NewNop())
	err := second.Claim(ctx)
	require.ErrorIs(t, err, ErrAlreadyRunning)
	assert.NoDirExists(t, second.Dir())

	first.Release()
	require.NoError(t, second.Claim(ctx))
	second.Release()
}

func TestProcessAlive(t *testing.T) {
	assert.True(t, processAlive(os.Getpid()))
	assert.False(t, processAlive(0))
	assert.False(t, processAlive(-1))
}
