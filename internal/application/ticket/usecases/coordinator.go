package usecases

import (
	"sync"

	"github.com/sportello-bot/sportello/internal/shared/goroutine"
	"github.com/sportello-bot/sportello/internal/shared/logger"
)

// Coordinator is the process-wide state shared by the ticket use cases: the
// set of channels currently closing and the background tasks they schedule.
// The lock provider covers other instances; the closing set covers concurrent
// triggers inside this one before the provider is even consulted.
type Coordinator struct {
	mu      sync.Mutex
	closing map[string]struct{}
	tasks   goroutine.Group
	logger  logger.Interface
}

func NewCoordinator(log logger.Interface) *Coordinator {
	return &Coordinator{
		closing: make(map[string]struct{}),
		logger:  log,
	}
}

// BeginClosing marks channelID as closing. It returns false when a close is
// already in flight for it.
func (c *Coordinator) BeginClosing(channelID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.closing[channelID]; ok {
		return false
	}
	c.closing[channelID] = struct{}{}
	return true
}

func (c *Coordinator) EndClosing(channelID string) {
	c.mu.Lock()
	delete(c.closing, channelID)
	c.mu.Unlock()
}

func (c *Coordinator) IsClosing(channelID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.closing[channelID]
	return ok
}

// OnPanic registers the handler for panics in background tasks. It must be
// called before any task is started.
func (c *Coordinator) OnPanic(fn goroutine.PanicHandler) {
	c.tasks.OnPanic = fn
}

// Go runs fn in the background. Errors inside fn are logged, never
// propagated; a panic goes to the OnPanic handler.
func (c *Coordinator) Go(name string, fn func()) {
	c.tasks.Go(c.logger, name, fn)
}

// Wait blocks until every background task has returned. Shutdown calls it
// after the gateway is closed.
func (c *Coordinator) Wait() {
	c.tasks.Wait()
}
