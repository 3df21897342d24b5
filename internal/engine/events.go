package engine

import (
	"log/slog"
	"sync"

	"glow/internal/logging"
)

const subscriberBuffer = 64

// dispatcher fans state events out to subscribers. Delivery to every
// subscriber preserves application order; a subscriber that falls more
// than subscriberBuffer events behind is dropped so one stalled consumer
// cannot block the rest.
type dispatcher struct {
	events <-chan State
	logger *slog.Logger

	mu     sync.Mutex
	subs   map[uint64]chan State
	nextID uint64
	closed bool
}

func newDispatcher(events <-chan State, logger *slog.Logger) *dispatcher {
	return &dispatcher{
		events: events,
		logger: logger,
		subs:   make(map[uint64]chan State),
	}
}

func (d *dispatcher) run(wg *sync.WaitGroup) {
	defer wg.Done()
	for st := range d.events {
		d.broadcast(st)
	}
	d.closeAll()
}

func (d *dispatcher) broadcast(st State) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, ch := range d.subs {
		select {
		case ch <- st:
		default:
			delete(d.subs, id)
			close(ch)
			logging.WarnWithContext(d.logger, "dropping slow event subscriber", "subscriber_dropped",
				logging.Uint64("subscriber", id),
				logging.Uint64(logging.FieldSeq, st.Seq),
				logging.String(logging.FieldErrorHint, "subscriber must drain events faster"),
				logging.String(logging.FieldImpact, "that client loses its event stream"))
		}
	}
}

func (d *dispatcher) subscribe() (<-chan State, func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ch := make(chan State, subscriberBuffer)
	if d.closed {
		close(ch)
		return ch, func() {}
	}
	d.nextID++
	id := d.nextID
	d.subs[id] = ch
	cancel := func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if _, ok := d.subs[id]; ok {
			delete(d.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

func (d *dispatcher) closeAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	for id, ch := range d.subs {
		delete(d.subs, id)
		close(ch)
	}
}

// Subscribe registers for state events. Events arrive in application
// order. The returned channel closes when cancel is called, when the
// subscriber falls too far behind, or when the engine shuts down.
func (e *Engine) Subscribe() (<-chan State, func()) {
	return e.dispatcher.subscribe()
}
