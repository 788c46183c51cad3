package goroutine

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sportello-bot/sportello/internal/shared/logger"
)

func TestGroupWaitsAndSurvivesPanics(t *testing.T) {
	var g Group
	var ran atomic.Int32
	log := logger.NewNop()

	g.Go(log, "ok", func() { ran.Add(1) })
	g.Go(log, "boom", func() {
		ran.Add(1)
		panic("welcome send exploded")
	})
	g.Wait()

	assert.Equal(t, int32(2), ran.Load())
}

func TestGroupHandsPanicsToOnPanic(t *testing.T) {
	var mu sync.Mutex
	var sources []string
	var values []any

	g := Group{OnPanic: func(source string, recovered any) {
		mu.Lock()
		defer mu.Unlock()
		sources = append(sources, source)
		values = append(values, recovered)
	}}
	log := logger.NewNop()

	g.Go(log, "ok", func() {})
	g.Go(log, "ticket-delete", func() { panic("channel delete exploded") })
	g.Wait()

	assert.Equal(t, []string{"ticket-delete"}, sources)
	assert.Equal(t, []any{"channel delete exploded"}, values)
}
