package capture

import "sync"

// DefaultRelayCapacity is the number of display frames buffered between the
// detection loop and the render loop.
const DefaultRelayCapacity = 2

// RelayStats counts relay traffic.
type RelayStats struct {
	Pushed  uint64 `json:"pushed"`
	Dropped uint64 `json:"dropped"`
	Popped  uint64 `json:"popped"`
	Queued  int    `json:"queued"`
}

// Relay is a bounded single-producer/single-consumer hand-off that favors
// freshness: Push never blocks and drops the incoming item when full, so the
// consumer may skip items but never lags arbitrarily far behind.
type Relay[T any] struct {
	items   chan T
	release func(T)

	mu     sync.Mutex
	stats  RelayStats
	closed bool
}

// NewRelay creates a relay holding at most capacity items. release, if not
// nil, is called on every item the relay discards.
func NewRelay[T any](capacity int, release func(T)) *Relay[T] {
	if capacity <= 0 {
		capacity = DefaultRelayCapacity
	}
	return &Relay[T]{
		items:   make(chan T, capacity),
		release: release,
	}
}

// Push offers an item and reports whether it was queued. A dropped item is
// released.
func (r *Relay[T]) Push(item T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		r.discard(item)
		return false
	}

	select {
	case r.items <- item:
		r.stats.Pushed++
		return true
	default:
		r.stats.Dropped++
		r.discard(item)
		return false
	}
}

// Pop returns the oldest queued item without blocking.
func (r *Relay[T]) Pop() (T, bool) {
	select {
	case item := <-r.items:
		r.mu.Lock()
		r.stats.Popped++
		r.mu.Unlock()
		return item, true
	default:
		var zero T
		return zero, false
	}
}

// Stats returns a snapshot of the relay counters.
func (r *Relay[T]) Stats() RelayStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.stats
	s.Queued = len(r.items)
	return s
}

// Close releases queued items and drops everything pushed afterwards.
func (r *Relay[T]) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true

	for {
		select {
		case item := <-r.items:
			r.discard(item)
		default:
			return
		}
	}
}

func (r *Relay[T]) discard(item T) {
	if r.release != nil {
		r.release(item)
	}
}
