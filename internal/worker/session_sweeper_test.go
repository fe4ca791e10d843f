package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingSweeper struct {
	calls atomic.Int32
}

func (s *countingSweeper) Sweep() int {
	s.calls.Add(1)
	return 1
}

func TestSessionSweeperRunsUntilClosed(t *testing.T) {
	store := &countingSweeper{}
	sweeper := NewSessionSweeper(store, 5*time.Millisecond)

	sweeper.Start(context.Background())
	sweeper.Start(context.Background())

	assert.Eventually(t, func() bool { return store.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)

	sweeper.Close()
	after := store.calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, store.calls.Load())
}

func TestSessionSweeperStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sweeper := NewSessionSweeper(&countingSweeper{}, time.Millisecond)
	sweeper.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		sweeper.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
