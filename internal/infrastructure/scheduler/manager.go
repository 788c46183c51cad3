// Package scheduler runs the bot's periodic maintenance using gocron v2.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/sportello-bot/sportello/internal/shared/biztime"
	"github.com/sportello-bot/sportello/internal/shared/logger"
)

// BatchJob defines the interface for a scheduled batch processing job.
// Each Execute call processes a batch and returns the number of items processed.
type BatchJob interface {
	Execute(ctx context.Context) (int, error)
}

// BatchJobFunc adapts a function to BatchJob.
type BatchJobFunc func(ctx context.Context) (int, error)

func (f BatchJobFunc) Execute(ctx context.Context) (int, error) {
	return f(ctx)
}

// Renewer keeps a lease alive.
type Renewer interface {
	Renew(ctx context.Context) error
}

// SchedulerManager owns the single gocron scheduler of the process.
type SchedulerManager struct {
	scheduler gocron.Scheduler
	logger    logger.Interface

	// Track whether the scheduler has been started
	started   bool
	startedMu sync.RWMutex
}

// NewSchedulerManager creates a new SchedulerManager instance.
// It initializes gocron with the business timezone.
func NewSchedulerManager(log logger.Interface) (*SchedulerManager, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(biztime.Location()),
	)
	if err != nil {
		return nil, err
	}

	return &SchedulerManager{
		scheduler: scheduler,
		logger:    log,
	}, nil
}

// ========================================
// Transcript Retention
// ========================================

// RegisterTranscriptSweepJob deletes expired transcripts every interval,
// starting immediately so a restart catches up on retention.
func (m *SchedulerManager) RegisterTranscriptSweepJob(sweepJob BatchJob, interval time.Duration) error {
	_, err := m.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			m.runBatch(ctx, "transcript sweep", sweepJob)
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("transcript", "retention"),
		gocron.WithName("transcript-sweep"),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered transcript sweep job", "interval", interval)
	return nil
}

// ========================================
// Panel Refresh
// ========================================

// RegisterPanelRefreshJob reposts every recorded panel each interval. The
// first run waits one interval so startup does not repost panels that were
// just shown.
func (m *SchedulerManager) RegisterPanelRefreshJob(refreshJob BatchJob, interval time.Duration) error {
	if interval <= 0 {
		m.logger.Infow("panel refresh disabled")
		return nil
	}

	_, err := m.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			m.runBatch(ctx, "panel refresh", refreshJob)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("panel", "refresh"),
		gocron.WithName("panel-refresh"),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered panel refresh job", "interval", interval)
	return nil
}

// ========================================
// Instance Heartbeat
// ========================================

// RegisterInstanceHeartbeat renews the single-instance lock every interval.
// onFailure is called with the renewal error; the serve command decides
// whether that is fatal.
func (m *SchedulerManager) RegisterInstanceHeartbeat(renewer Renewer, interval time.Duration, onFailure func(error)) error {
	_, err := m.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()
			if err := renewer.Renew(ctx); err != nil {
				m.logger.Errorw("failed to renew instance lock", "error", err)
				if onFailure != nil {
					onFailure(err)
				}
				return
			}
			m.logger.Debugw("instance lock renewed")
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("instance", "heartbeat"),
		gocron.WithName("instance-heartbeat"),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered instance heartbeat", "interval", interval)
	return nil
}

func (m *SchedulerManager) runBatch(ctx context.Context, name string, job BatchJob) {
	m.logger.Debugw("scheduled task started", "task", name)

	startTime := biztime.NowUTC()

	count, err := job.Execute(ctx)
	if err != nil {
		m.logger.Errorw("scheduled task failed",
			"task", name,
			"error", err,
			"duration", time.Since(startTime),
		)
		return
	}

	if count > 0 {
		m.logger.Infow("scheduled task processed items",
			"task", name,
			"count", count,
			"duration", time.Since(startTime),
		)
	} else {
		m.logger.Debugw("scheduled task had nothing to do",
			"task", name,
			"duration", time.Since(startTime),
		)
	}
}

// ========================================
// Scheduler Lifecycle Methods
// ========================================

// Start starts the scheduler and all registered jobs.
func (m *SchedulerManager) Start() {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if m.started {
		return
	}

	m.scheduler.Start()
	m.started = true
	m.logger.Infow("scheduler manager started", "job_count", len(m.scheduler.Jobs()))
}

// Stop gracefully stops the scheduler.
// It waits for all running jobs to complete before returning.
func (m *SchedulerManager) Stop() error {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if !m.started {
		return nil
	}

	m.logger.Infow("stopping scheduler manager")

	err := m.scheduler.Shutdown()
	m.started = false

	if err != nil {
		m.logger.Errorw("scheduler manager shutdown with error", "error", err)
		return err
	}

	m.logger.Infow("scheduler manager stopped")
	return nil
}

// IsStarted returns whether the scheduler is running.
func (m *SchedulerManager) IsStarted() bool {
	m.startedMu.RLock()
	defer m.startedMu.RUnlock()
	return m.started
}

// Jobs returns all registered jobs for inspection.
func (m *SchedulerManager) Jobs() []gocron.Job {
	return m.scheduler.Jobs()
}
