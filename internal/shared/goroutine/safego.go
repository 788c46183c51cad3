// Package goroutine launches tracked background work with panic recovery.
package goroutine

import (
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/sportello-bot/sportello/internal/shared/logger"
)

// PanicHandler receives a panic recovered from a task after it was logged.
type PanicHandler func(source string, recovered any)

// Group tracks background tasks so shutdown can wait for in-flight work.
type Group struct {
	wg sync.WaitGroup

	// OnPanic, when set, is called with every recovered panic. The serve
	// command uses it to release the instance lock and exit.
	OnPanic PanicHandler
}

// Go runs fn in a new goroutine and registers it with the group. A panic is
// logged with its stack trace and handed to OnPanic.
func (g *Group) Go(log logger.Interface, name string, fn func()) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer g.handlePanic(log, name)
		fn()
	}()
}

// Wait blocks until every task started with Go has returned.
func (g *Group) Wait() {
	g.wg.Wait()
}

func (g *Group) handlePanic(log logger.Interface, name string) {
	r := recover()
	if r == nil {
		return
	}
	log.Errorw("goroutine panicked",
		"goroutine", name,
		"panic", fmt.Sprintf("%v", r),
		"stack", string(debug.Stack()),
	)
	if g.OnPanic != nil {
		g.OnPanic(name, r)
	}
}
