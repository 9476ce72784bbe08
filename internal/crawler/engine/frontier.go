package engine

import (
	"context"
	"sync"

	"edu-crawler/pkg/models"
)

// frontier is the run's FIFO of tasks. The run is over once the queue is
// empty and no popped task is still being processed, since only a task in
// flight can schedule new ones.
type frontier struct {
	mu       sync.Mutex
	queue    []models.CrawlTask
	inFlight int
	drained  bool
	wake     chan struct{}
}

func newFrontier() *frontier {
	return &frontier{wake: make(chan struct{})}
}

// broadcast wakes every waiting worker. Callers hold mu.
func (f *frontier) broadcast() {
	close(f.wake)
	f.wake = make(chan struct{})
}

func (f *frontier) push(task models.CrawlTask) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.drained {
		return
	}
	f.queue = append(f.queue, task)
	f.broadcast()
}

// next blocks until a task is available. It reports false once the
// frontier has drained or ctx is done.
func (f *frontier) next(ctx context.Context) (models.CrawlTask, bool) {
	for {
		if ctx.Err() != nil {
			return models.CrawlTask{}, false
		}
		f.mu.Lock()
		if f.drained {
			f.mu.Unlock()
			return models.CrawlTask{}, false
		}
		if len(f.queue) > 0 {
			task := f.queue[0]
			f.queue[0] = models.CrawlTask{}
			f.queue = f.queue[1:]
			f.inFlight++
			f.mu.Unlock()
			return task, true
		}
		if f.inFlight == 0 {
			f.drained = true
			f.broadcast()
			f.mu.Unlock()
			return models.CrawlTask{}, false
		}
		wake := f.wake
		f.mu.Unlock()

		select {
		case <-ctx.Done():
			return models.CrawlTask{}, false
		case <-wake:
		}
	}
}

// done marks a task returned by next as processed.
func (f *frontier) done() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--
	if f.inFlight == 0 && len(f.queue) == 0 {
		f.drained = true
	}
	f.broadcast()
}
