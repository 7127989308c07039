package gesture

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultJoinTimeout bounds how long a transition waits for the previous run to exit.
const DefaultJoinTimeout = 100 * time.Millisecond

// Transition records a change of the committed gesture.
type Transition struct {
	From  Label     `json:"from"`
	To    Label     `json:"to"`
	At    time.Time `json:"at"`
	Ticks int64     `json:"ticks"` // scroll calls issued by the run that ended
}

// Message returns the console status line for the transition.
func (t Transition) Message() string {
	switch t.To {
	case Like:
		return "LIKE - Scrolling DOWN"
	case Dislike:
		return "DISLIKE - Scrolling UP"
	default:
		return "Stopped scrolling"
	}
}

// SessionConfig holds configuration options for a Session.
type SessionConfig struct {
	// JoinTimeout bounds the wait for a stopped run. Defaults to DefaultJoinTimeout.
	JoinTimeout time.Duration

	// OnTransition is called with the session lock held after every change.
	// It must not block or call back into the Session.
	OnTransition func(Transition)

	Logger *slog.Logger
}

// Session tracks the committed gesture and owns the scroll run for it.
// At most one run is active, and one is active exactly when the committed
// label is Like or Dislike.
type Session struct {
	driver       *Driver
	joinTimeout  time.Duration
	onTransition func(Transition)
	logger       *slog.Logger

	mu      sync.Mutex
	current Label
	run     *Run
	closed  bool
}

// NewSession creates a Session that starts runs through driver.
func NewSession(driver *Driver, cfg SessionConfig) *Session {
	if cfg.JoinTimeout <= 0 {
		cfg.JoinTimeout = DefaultJoinTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Session{
		driver:       driver,
		joinTimeout:  cfg.JoinTimeout,
		onTransition: cfg.OnTransition,
		logger:       cfg.Logger,
	}
}

// OnClassification feeds one detection cycle's label. An unchanged label is
// a no-op. A change stops the current run, starts a run for an active label
// and commits it. The returned bool reports whether a transition happened.
func (s *Session) OnClassification(label Label) (Transition, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || label == s.current {
		return Transition{}, false
	}

	t := Transition{
		From:  s.current,
		To:    label,
		Ticks: s.stopRunLocked(s.joinTimeout),
	}

	if label.Active() {
		s.run = s.driver.Start(label)
	}

	s.current = label
	t.At = time.Now()
	s.notifyLocked(t)

	return t, true
}

// Current returns the committed label.
func (s *Session) Current() Label {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Running reports whether a scroll run is active.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run != nil
}

// Close force-stops any running scroll, waiting at most joinTimeout, and
// rejects further classifications. An active gesture is reported as a final
// transition to None. Close is idempotent.
func (s *Session) Close(joinTimeout time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	if s.current == None {
		return
	}

	t := Transition{
		From:  s.current,
		To:    None,
		Ticks: s.stopRunLocked(joinTimeout),
		At:    time.Now(),
	}
	s.current = None
	s.notifyLocked(t)
}

// stopRunLocked stops the current run with a bounded join and returns its
// tick count. A run that misses the deadline is abandoned; it exits on its
// own at its next check.
func (s *Session) stopRunLocked(timeout time.Duration) int64 {
	if s.run == nil {
		return 0
	}

	run := s.run
	s.run = nil

	run.Stop()
	if !run.Wait(timeout) {
		s.logger.Debug("scroll run did not exit before join timeout",
			"label", run.Label().String(),
			"timeout", timeout,
		)
	}
	return run.Ticks()
}

func (s *Session) notifyLocked(t Transition) {
	s.logger.Info(t.Message(),
		"from", t.From.String(),
		"to", t.To.String(),
		"ticks", t.Ticks,
	)
	if s.onTransition != nil {
		s.onTransition(t)
	}
}
