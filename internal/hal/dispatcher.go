package hal

import (
	"context"
	"log/slog"
	"sync"
)

const defaultQueueSize = 64

// Handler services one interrupt. It runs to completion and must not block.
type Handler func(Event)

// Dispatcher serialises interrupt delivery: events raised from any goroutine
// are queued and handled one at a time by Run, never reentrantly. Disable
// holds off delivery until Enable, which is how the decoder protects its
// critical section.
type Dispatcher struct {
	mu       sync.Mutex // held while a handler runs or interrupts are disabled
	handlers [kindCount]Handler
	queue    chan Event
	log      *slog.Logger
}

// NewDispatcher creates a dispatcher with a bounded event queue.
func NewDispatcher(log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		queue: make(chan Event, defaultQueueSize),
		log:   log,
	}
}

// Handle registers h for events of kind k, replacing any previous handler.
// Handlers should be registered before Run starts.
func (d *Dispatcher) Handle(k Kind, h Handler) {
	d.mu.Lock()
	d.handlers[k] = h
	d.mu.Unlock()
}

// Raise queues ev for delivery. It never blocks: when the queue is full the
// event is dropped and false is returned.
func (d *Dispatcher) Raise(ev Event) bool {
	select {
	case d.queue <- ev:
		return true
	default:
		d.log.LogAttrs(context.Background(), slog.LevelWarn, "interrupt dropped",
			slog.String("kind", ev.Kind.String()))
		return false
	}
}

// Disable holds off interrupt delivery. Calls must not nest.
func (d *Dispatcher) Disable() { d.mu.Lock() }

// Enable resumes interrupt delivery.
func (d *Dispatcher) Enable() { d.mu.Unlock() }

// Run delivers queued events until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-d.queue:
			d.dispatch(ev)
		}
	}
}

// Drain delivers every event already queued and returns. It is meant for
// callers that step interrupt delivery by hand.
func (d *Dispatcher) Drain() {
	for {
		select {
		case ev := <-d.queue:
			d.dispatch(ev)
		default:
			return
		}
	}
}

func (d *Dispatcher) dispatch(ev Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ev.Kind >= kindCount {
		return
	}
	h := d.handlers[ev.Kind]
	if h == nil {
		return
	}
	h(ev)
}

var _ InterruptMask = (*Dispatcher)(nil)
