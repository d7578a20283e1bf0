package wgrib

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/germanamz/wgrib/pkg/routine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_PublishSubscribe(t *testing.T) {
	bus := NewEventBus()
	sub := bus.Subscribe(4)
	defer bus.Unsubscribe(sub)

	bus.Publish(Event{Kind: EventRunStart, Selector: routine.Primary, Timestamp: time.Now()})

	select {
	case e := <-sub.C:
		assert.Equal(t, EventRunStart, e.Kind)
		assert.Equal(t, routine.Primary, e.Selector)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestEventBus_MultipleSubscribers(t *testing.T) {
	bus := NewEventBus()
	a := bus.Subscribe(1)
	b := bus.Subscribe(1)
	defer bus.Unsubscribe(a)
	defer bus.Unsubscribe(b)

	bus.Publish(Event{Kind: EventRunEnd})

	assert.Equal(t, EventRunEnd, (<-a.C).Kind)
	assert.Equal(t, EventRunEnd, (<-b.C).Kind)
}

func TestEventBus_DropsWhenFull(t *testing.T) {
	bus := NewEventBus()
	sub := bus.Subscribe(1)
	defer bus.Unsubscribe(sub)

	bus.Publish(Event{Kind: EventRunStart})
	bus.Publish(Event{Kind: EventRunEnd})

	assert.Equal(t, EventRunStart, (<-sub.C).Kind)
	assert.Empty(t, sub.C)
}

func TestEventBus_Unsubscribe(t *testing.T) {
	bus := NewEventBus()
	sub := bus.Subscribe(1)

	bus.Unsubscribe(sub)
	bus.Unsubscribe(sub)

	_, ok := <-sub.C
	require.False(t, ok)

	bus.Publish(Event{Kind: EventRunError})
}

func TestEventBus_ConcurrentPublish(t *testing.T) {
	bus := NewEventBus()
	sub := bus.Subscribe(100)
	defer bus.Unsubscribe(sub)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 10 {
				bus.Publish(Event{Kind: EventRunEnd})
			}
		}()
	}
	wg.Wait()

	assert.Len(t, sub.C, 100)
}

func TestLogEvents(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	bus := NewEventBus()
	sub := bus.Subscribe(4)

	done := make(chan struct{})
	go func() {
		defer close(done)
		LogEvents(context.Background(), sub, log)
	}()

	bus.Publish(Event{Kind: EventRunStart, Selector: routine.Primary})
	bus.Publish(Event{Kind: EventRunEnd, Selector: routine.Primary, Data: Result{ExitStatus: 8, Stdout: "abc"}})
	bus.Publish(Event{Kind: EventRunError, Selector: routine.Secondary, Data: errors.New("boom")})
	bus.Unsubscribe(sub)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("LogEvents did not return after unsubscribe")
	}

	out := buf.String()
	assert.Contains(t, out, `msg="decoder run started"`)
	assert.Contains(t, out, `msg="decoder run" selector=`)
	assert.Contains(t, out, "status=8")
	assert.Contains(t, out, "stdout_bytes=3")
	assert.Contains(t, out, `msg="decoder run failed"`)
	assert.Contains(t, out, "error=boom")
}

func TestLogEvents_StopsOnContext(t *testing.T) {
	bus := NewEventBus()
	sub := bus.Subscribe(1)
	defer bus.Unsubscribe(sub)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		LogEvents(ctx, sub, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("LogEvents ignored a cancelled context")
	}
}
