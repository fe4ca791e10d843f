package worker

import (
	"context"
	"log"
	"sync"
	"time"
)

// Sweeper is a store that can drop its expired entries.
type Sweeper interface {
	Sweep() int
}

// SessionSweeper periodically evicts expired sessions and image blobs from
// an in-process store. Redis expires keys on its own and needs no sweeper.
type SessionSweeper struct {
	store    Sweeper
	interval time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSessionSweeper(store Sweeper, interval time.Duration) *SessionSweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SessionSweeper{
		store:    store,
		interval: interval,
	}
}

func (w *SessionSweeper) Start(ctx context.Context) {
	if w.cancel != nil {
		return
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				if removed := w.store.Sweep(); removed > 0 {
					log.Printf("session sweeper released %d expired entries", removed)
				}
			}
		}
	}()
}

func (w *SessionSweeper) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
