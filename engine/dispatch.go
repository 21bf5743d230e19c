package engine

import (
	"context"
	"sync"
	"time"

	"casino-engine/models"

	"github.com/charmbracelet/log"
)

// DefaultDispatchQueue is how many events may wait for delivery before new
// ones are dropped.
const DefaultDispatchQueue = 1024

type dispatch struct {
	channel string
	event   models.Event
	flushed chan struct{}
}

// dispatcher delivers events on a single goroutine, in the order they were
// queued, so publishers never run under a table lock. A full queue drops the
// event rather than block the caller.
type dispatcher struct {
	publisher Publisher
	timeout   time.Duration
	logger    *log.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan dispatch
	done   chan struct{}
}

func newDispatcher(publisher Publisher, size int, timeout time.Duration, logger *log.Logger) *dispatcher {
	if size <= 0 {
		size = DefaultDispatchQueue
	}
	d := &dispatcher{
		publisher: publisher,
		timeout:   timeout,
		logger:    logger,
		queue:     make(chan dispatch, size),
		done:      make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *dispatcher) enqueue(channel string, event models.Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}
	select {
	case d.queue <- dispatch{channel: channel, event: event}:
	default:
		d.logger.Warn("event queue full, dropping event", "channel", channel, "event", event.Event)
	}
}

// flush blocks until every event queued before the call has been handed to
// the publisher.
func (d *dispatcher) flush() {
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		return
	}
	flushed := make(chan struct{})
	d.queue <- dispatch{flushed: flushed}
	d.mu.RUnlock()
	<-flushed
}

// close delivers what is already queued and stops the goroutine.
func (d *dispatcher) close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.done
}

func (d *dispatcher) run() {
	defer close(d.done)
	for item := range d.queue {
		if item.flushed != nil {
			close(item.flushed)
			continue
		}
		d.deliver(item.channel, item.event)
	}
}

// deliver never fails the engine: errors and panics from the publisher are
// logged and dropped.
func (d *dispatcher) deliver(channel string, event models.Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("publisher panic", "channel", channel, "event", event.Event, "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	if err := d.publisher.Publish(ctx, channel, event); err != nil {
		d.logger.Warn("failed to publish event", "channel", channel, "event", event.Event, "err", err)
	}
}
