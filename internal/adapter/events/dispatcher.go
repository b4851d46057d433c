package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sm8ta/webike_registry/internal/core/domain"
	"github.com/sm8ta/webike_registry/internal/core/ports"
)

const (
	defaultQueueSize = 100
	sendTimeout      = 5 * time.Second
)

var (
	ErrQueueFull = errors.New("event queue full, event dropped")
	ErrClosed    = errors.New("event dispatcher closed")
)

// Sink delivers a single event to its transport.
type Sink interface {
	Send(ctx context.Context, event domain.Event) error
}

// Dispatcher queues events in memory and hands them to a Sink from one worker
// goroutine, so request handlers never wait on the transport.
type Dispatcher struct {
	sink   Sink
	logger ports.LoggerPort
	queue  chan domain.Event
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(sink Sink, logger ports.LoggerPort, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	d := &Dispatcher{
		sink:   sink,
		logger: logger,
		queue:  make(chan domain.Event, queueSize),
		done:   make(chan struct{}),
	}

	go d.worker()
	return d
}

func (d *Dispatcher) worker() {
	defer close(d.done)
	for ev := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		if err := d.sink.Send(ctx, ev); err != nil {
			d.logger.Error("Failed to deliver event", map[string]interface{}{
				"error":      err.Error(),
				"event_id":   ev.ID.String(),
				"event_type": string(ev.Type),
			})
		}
		cancel()
	}
}

// Publish enqueues event without blocking. It fails when the queue is full or closed.
func (d *Dispatcher) Publish(_ context.Context, event domain.Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}

	select {
	case d.queue <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting events and waits for the queue to drain or ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
