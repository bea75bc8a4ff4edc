package flow

import (
	"context"
	"errors"
	"sync"
)

// ErrLoopStopped is returned by Post after Stop.
var ErrLoopStopped = errors.New("[browserid] Flow loop stopped")

// A Loop owns a Machine and feeds it events posted from any goroutine.
// Events are handled one at a time on the loop goroutine, in the order
// Post accepted them. Actions run on the loop goroutine as well; they
// should report completion with Post.
type Loop struct {
	machine *Machine
	events  chan Event
	onError func(Event, error)

	stop     chan struct{}
	stopOnce sync.Once
	waitStop sync.WaitGroup
}

// NewLoop returns a loop for m that buffers up to buffer posted events.
// onError, if not nil, receives every event whose handling failed.
func NewLoop(m *Machine, buffer int, onError func(Event, error)) *Loop {
	return &Loop{
		machine: m,
		events:  make(chan Event, buffer),
		onError: onError,
		stop:    make(chan struct{}),
	}
}

// Run starts the loop goroutine.
func (l *Loop) Run() {
	l.waitStop.Add(1)
	go l.run()
}

func (l *Loop) run() {
	defer l.waitStop.Done()
	for {
		select {
		case <-l.stop:
			return
		case ev := <-l.events:
			if err := l.machine.Handle(ev); err != nil && l.onError != nil {
				l.onError(ev, err)
			}
		}
	}
}

// Post queues ev. It blocks while the buffer is full.
func (l *Loop) Post(ctx context.Context, ev Event) error {
	select {
	case <-l.stop:
		return ErrLoopStopped
	default:
	}
	select {
	case l.events <- ev:
		return nil
	case <-l.stop:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop ends the loop goroutine and waits for the event in progress.
// Events still buffered are dropped.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
	l.waitStop.Wait()
}
