package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sportello-bot/sportello/internal/shared/logger"
)

type countingRenewer struct {
	calls atomic.Int32
	err   error
}

func (r *countingRenewer) Renew(context.Context) error {
	r.calls.Add(1)
	return r.err
}

func newTestManager(t *testing.T) *SchedulerManager {
	t.Helper()
	m, err := NewSchedulerManager(logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Stop() })
	return m
}

func TestSchedulerManager_RegistersNamedJobs(t *testing.T) {
	m := newTestManager(t)

	noop := BatchJobFunc(func(context.Context) (int, error) { return 0, nil })
	require.NoError(t, m.RegisterTranscriptSweepJob(noop, time.Hour))
	require.NoError(t, m.RegisterPanelRefreshJob(noop, time.Hour))
	require.NoError(t, m.RegisterInstanceHeartbeat(&countingRenewer{}, time.Hour, nil))

	names := make([]string, 0, len(m.Jobs()))
	for _, j := range m.Jobs() {
		names = append(names, j.Name())
	}
	assert.ElementsMatch(t, []string{"transcript-sweep", "panel-refresh", "instance-heartbeat"}, names)
}

func TestSchedulerManager_PanelRefreshDisabled(t *testing.T) {
	m := newTestManager(t)

	noop := BatchJobFunc(func(context.Context) (int, error) { return 0, nil })
	require.NoError(t, m.RegisterPanelRefreshJob(noop, 0))
	assert.Empty(t, m.Jobs())
}

func TestSchedulerManager_SweepRunsImmediately(t *testing.T) {
	m := newTestManager(t)

	var runs atomic.Int32
	sweep := BatchJobFunc(func(context.Context) (int, error) {
		runs.Add(1)
		return 3, nil
	})
	require.NoError(t, m.RegisterTranscriptSweepJob(sweep, time.Hour))

	m.Start()
	assert.True(t, m.IsStarted())
	assert.Eventually(t, func() bool { return runs.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestSchedulerManager_HeartbeatReportsFailure(t *testing.T) {
	m := newTestManager(t)

	renewer := &countingRenewer{err: errors.New("lock stolen")}
	failures := make(chan error, 8)
	require.NoError(t, m.RegisterInstanceHeartbeat(renewer, 50*time.Millisecond, func(err error) {
		failures <- err
	}))

	m.Start()
	select {
	case err := <-failures:
		assert.EqualError(t, err, "lock stolen")
	case <-time.After(2 * time.Second):
		t.Fatal("heartbeat never ran")
	}
	assert.GreaterOrEqual(t, renewer.calls.Load(), int32(1))
}

func TestSchedulerManager_StopIsIdempotentBeforeStart(t *testing.T) {
	m, err := NewSchedulerManager(logger.NewNop())
	require.NoError(t, err)

	assert.False(t, m.IsStarted())
	require.NoError(t, m.Stop())
}
