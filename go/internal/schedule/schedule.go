// Package schedule runs repeating work on a clockwork clock so that every
// polling loop in the consoles can be stopped and tested with a fake clock.
package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Task is a repeating job started by Every
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Option configures a task started by Every
type Option func(*options)

type options struct {
	immediate bool
}

// Immediately makes the task call fn as soon as it starts instead of waiting
// for the first interval. The first call runs on the task's context, so Stop
// cancels it like any other.
func Immediately() Option {
	return func(o *options) { o.immediate = true }
}

// Every calls fn once per interval until ctx is cancelled or Stop is called.
// Unless Immediately is given, the first call happens one interval after
// Every returns. Calls never overlap; a tick that arrives while fn is running
// is coalesced.
func Every(ctx context.Context, clock clockwork.Clock, interval time.Duration, fn func(ctx context.Context), opts ...Option) *Task {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancel(ctx)
	t := &Task{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	ticker := clock.NewTicker(interval)
	go func() {
		defer close(t.done)
		defer ticker.Stop()

		if o.immediate {
			fn(ctx)
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				// Stop may race with a pending tick.
				if ctx.Err() != nil {
					return
				}
				fn(ctx)
			}
		}
	}()

	log.Debug().Dur("interval", interval).Bool("immediate", o.immediate).Msg("scheduled repeating task")
	return t
}

// Stop cancels the task. It does not wait for a running call to return.
func (t *Task) Stop() {
	t.once.Do(t.cancel)
}

// Done is closed once the task has stopped
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task has stopped
func (t *Task) Wait() {
	<-t.done
}
