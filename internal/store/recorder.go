package store

import (
	"fmt"
	"sync"

	"github.com/ayusman/thumbscroll/internal/gesture"
)

// Recorder turns session transitions into gesture events. A transition into
// an active label opens an event and a transition out of it closes the
// event with the run's tick count.
type Recorder struct {
	events *EventRepository

	mu   sync.Mutex
	open string
}

// NewRecorder returns a Recorder writing to s.
func NewRecorder(s *Store) *Recorder {
	return &Recorder{events: s.Events()}
}

// Record applies one transition.
func (r *Recorder) Record(t gesture.Transition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t.From.Active() && r.open != "" {
		id := r.open
		r.open = ""
		if err := r.events.Finish(id, t.At, t.Ticks); err != nil {
			return fmt.Errorf("finish %s event: %w", t.From, err)
		}
	}

	if t.To.Active() {
		e, err := r.events.Start(t.To, t.At)
		if err != nil {
			return err
		}
		r.open = e.ID
	}

	return nil
}

// OpenEvent returns the ID of the event currently being held, if any.
func (r *Recorder) OpenEvent() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.open, r.open != ""
}
