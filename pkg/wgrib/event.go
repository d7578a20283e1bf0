package wgrib

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/germanamz/wgrib/pkg/routine"
)

// EventKind identifies the type of invoker event.
type EventKind string

const (
	EventRunStart EventKind = "run_start"
	EventRunEnd   EventKind = "run_end"
	EventRunError EventKind = "run_error"
)

// Event is an immutable notification of invoker activity. Data holds the
// Result for run_end and the error for run_error.
type Event struct {
	Kind      EventKind
	Selector  routine.Selector
	Argv      []string
	Timestamp time.Time
	Data      any
}

// Subscription receives events from an EventBus.
type Subscription struct {
	C  <-chan Event
	ch chan Event
}

// EventBus fans out events to all active subscribers. It is safe for
// concurrent use.
type EventBus struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

// NewEventBus creates an EventBus ready for use.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[*Subscription]struct{})}
}

// Subscribe creates a subscription with the given channel buffer size.
func (b *EventBus) Subscribe(bufSize int) *Subscription {
	ch := make(chan Event, bufSize)
	sub := &Subscription{C: ch, ch: ch}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	return sub
}

// Unsubscribe removes the subscription and closes its channel.
func (b *EventBus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub]; ok {
		delete(b.subs, sub)
		close(sub.ch)
	}
}

// Publish sends an event to all subscribers, dropping it for subscribers
// whose buffer is full.
func (b *EventBus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs {
		select {
		case sub.ch <- e:
		default:
		}
	}
}

// LogEvents writes one record per event from sub to log until the
// subscription is closed or ctx is done.
func LogEvents(ctx context.Context, sub *Subscription, log *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-sub.C:
			if !ok {
				return
			}
			logEvent(log, e)
		}
	}
}

func logEvent(log *slog.Logger, e Event) {
	switch e.Kind {
	case EventRunStart:
		log.Debug("decoder run started", "selector", e.Selector, "argv", e.Argv)
	case EventRunEnd:
		res, _ := e.Data.(Result)
		log.Info("decoder run",
			"selector", e.Selector,
			"argv", e.Argv,
			"status", res.ExitStatus,
			"stdout_bytes", len(res.Stdout),
			"stderr_bytes", len(res.Stderr),
			"digest", res.Digest,
			"duration", res.Duration,
		)
	case EventRunError:
		err, _ := e.Data.(error)
		log.Warn("decoder run failed", "selector", e.Selector, "argv", e.Argv, "error", err)
	}
}
