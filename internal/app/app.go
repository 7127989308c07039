// Package app wires the camera, the landmark source and the gesture session
// into the running thumbscroll pipeline.
package app

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/thumbscroll/internal/capture"
	"github.com/ayusman/thumbscroll/internal/detector"
	"github.com/ayusman/thumbscroll/internal/emitter"
	"github.com/ayusman/thumbscroll/internal/gesture"
	"github.com/ayusman/thumbscroll/internal/render"
	"github.com/ayusman/thumbscroll/internal/server"
	"github.com/ayusman/thumbscroll/internal/server/api"
	"github.com/ayusman/thumbscroll/internal/store"
)

// Pipeline defaults.
const (
	// DefaultTimestampStep is how far the frame timestamp advances per frame.
	DefaultTimestampStep = 33 * time.Millisecond
	// DefaultShutdownTimeout bounds the wait for the scroll run on shutdown.
	DefaultShutdownTimeout = 500 * time.Millisecond
	// DefaultRelayCapacity is the number of annotated frames waiting for display.
	DefaultRelayCapacity = 2

	transitionQueueSize = 32
)

// Publisher receives gesture transitions for delivery outside the process.
type Publisher interface {
	Publish(t gesture.Transition) error
	Stats() emitter.Stats
}

// Config holds configuration options for the application.
type Config struct {
	Camera   capture.Camera
	Detector detector.Detector
	Scroller gesture.Scroller
	// Display shows annotated frames. Defaults to render.Headless.
	Display render.Display

	// Optional collaborators.
	Store     *store.Store
	Publisher Publisher
	Frames    *server.FrameBuffer
	Landmarks *server.LandmarksHub

	// OnTransition is called for every committed gesture change, off the
	// session lock.
	OnTransition func(gesture.Transition)
	// OnEnabled is called after the enabled toggle changes.
	OnEnabled func(enabled bool)

	ScrollInterval  time.Duration
	JoinTimeout     time.Duration
	ShutdownTimeout time.Duration
	TimestampStep   time.Duration
	RelayCapacity   int

	// Enabled is the initial toggle; a value persisted in Store wins.
	Enabled bool

	Logger *slog.Logger
}

// App runs the detection pipeline. The render loop owns the camera and the
// display; detection results are handled on a separate goroutine.
type App struct {
	config Config
	logger *slog.Logger

	camera     capture.Camera
	display    render.Display
	landmarker *detector.AsyncLandmarker
	session    *gesture.Session
	relay      *capture.Relay[*gocv.Mat]
	recorder   *store.Recorder

	// mu orders the enabled toggle against classifications.
	mu      sync.RWMutex
	enabled bool

	transitions  chan gesture.Transition
	resultsDone  chan struct{}
	dispatchDone chan struct{}
	closeOnce    sync.Once
	closeErr     error

	// failedDetections counts consecutive detection errors. Only the
	// results goroutine touches it.
	failedDetections int

	frames  atomic.Uint64
	lastTS  atomic.Int64
	hands   atomic.Int64
	dropped atomic.Uint64
}

// New creates an App and starts its detection worker. Callers must Close the
// App, which Run does on return.
func New(config Config) (*App, error) {
	if config.Camera == nil {
		return nil, errors.New("app: camera is required")
	}
	if config.Detector == nil {
		return nil, errors.New("app: detector is required")
	}
	if config.Scroller == nil {
		return nil, errors.New("app: scroller is required")
	}

	if config.Display == nil {
		config.Display = render.Headless{}
	}
	if config.ScrollInterval <= 0 {
		config.ScrollInterval = gesture.DefaultInterval
	}
	if config.JoinTimeout <= 0 {
		config.JoinTimeout = gesture.DefaultJoinTimeout
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = DefaultShutdownTimeout
	}
	if config.TimestampStep <= 0 {
		config.TimestampStep = DefaultTimestampStep
	}
	if config.RelayCapacity <= 0 {
		config.RelayCapacity = DefaultRelayCapacity
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	a := &App{
		config:       config,
		logger:       config.Logger,
		camera:       config.Camera,
		display:      config.Display,
		enabled:      config.Enabled,
		transitions:  make(chan gesture.Transition, transitionQueueSize),
		resultsDone:  make(chan struct{}),
		dispatchDone: make(chan struct{}),
	}

	if config.Store != nil {
		a.enabled = config.Store.Settings().Bool(store.SettingEnabled, config.Enabled)
		a.recorder = store.NewRecorder(config.Store)
	}

	a.relay = capture.NewRelay(config.RelayCapacity, func(m *gocv.Mat) {
		m.Close()
	})
	a.session = gesture.NewSession(
		gesture.NewDriver(config.Scroller, config.ScrollInterval),
		gesture.SessionConfig{
			JoinTimeout:  config.JoinTimeout,
			OnTransition: a.enqueue,
			Logger:       a.logger,
		},
	)
	a.landmarker = detector.NewAsyncLandmarker(config.Detector)

	go a.processResults()
	go a.dispatch()

	return a, nil
}

// SetEnabled turns gesture scrolling on or off and persists the choice when
// a store is configured. Disabling stops any scroll in progress.
func (a *App) SetEnabled(enabled bool) error {
	a.mu.Lock()
	changed := a.enabled != enabled
	a.enabled = enabled
	if !enabled {
		a.session.OnClassification(gesture.None)
	}
	a.mu.Unlock()

	var err error
	if a.config.Store != nil {
		if serr := a.config.Store.Settings().SetBool(store.SettingEnabled, enabled); serr != nil {
			err = fmt.Errorf("persist enabled: %w", serr)
		}
	}

	if changed {
		a.logger.Info("gesture detection toggled", "enabled", enabled)
		if a.config.OnEnabled != nil {
			a.config.OnEnabled(enabled)
		}
	}
	return err
}

// classify feeds the label for hand to the session, or None while disabled.
func (a *App) classify(hand *detector.HandLandmarks) gesture.Label {
	a.mu.RLock()
	defer a.mu.RUnlock()

	label := gesture.None
	if a.enabled {
		label = gesture.Classify(hand)
	}
	a.session.OnClassification(label)
	return label
}

// Enabled reports whether gestures currently drive scrolling.
func (a *App) Enabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// Status returns a snapshot of the pipeline.
func (a *App) Status() api.Status {
	st := api.Status{
		Label:           a.session.Current(),
		Enabled:         a.Enabled(),
		Scrolling:       a.session.Running(),
		LastTimestampMs: a.lastTS.Load(),
		Hands:           int(a.hands.Load()),
		Frames:          a.frames.Load(),
		SkippedFrames:   a.landmarker.Skipped(),
		Relay:           a.relay.Stats(),
	}
	if a.config.Publisher != nil {
		stats := a.config.Publisher.Stats()
		st.Emitter = &stats
	}
	return st
}

// Session returns the gesture session.
func (a *App) Session() *gesture.Session {
	return a.session
}

// DroppedTransitions returns how many transitions were not dispatched
// because the queue was full.
func (a *App) DroppedTransitions() uint64 {
	return a.dropped.Load()
}

// Close stops scrolling, then releases the landmarker, camera and display.
// It is safe to call more than once.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		a.session.Close(a.config.ShutdownTimeout)
		// The session emits nothing once closed.
		close(a.transitions)

		var errs []error
		if err := a.landmarker.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close landmarker: %w", err))
		}
		<-a.resultsDone
		a.relay.Close()

		if err := a.camera.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close camera: %w", err))
		}
		if err := a.display.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close display: %w", err))
		}
		<-a.dispatchDone

		a.closeErr = errors.Join(errs...)
		a.logger.Info("detection pipeline stopped")
	})
	return a.closeErr
}

// enqueue hands t to the dispatcher. It runs under the session lock and
// must not block.
func (a *App) enqueue(t gesture.Transition) {
	select {
	case a.transitions <- t:
	default:
		a.dropped.Add(1)
		a.logger.Warn("transition queue full, dropping", "to", t.To.String())
	}
}

func (a *App) dispatch() {
	defer close(a.dispatchDone)

	for t := range a.transitions {
		if a.recorder != nil {
			if err := a.recorder.Record(t); err != nil {
				a.logger.Warn("record gesture event", "error", err)
			}
		}
		if a.config.Publisher != nil {
			if err := a.config.Publisher.Publish(t); err != nil {
				a.logger.Debug("publish gesture event", "error", err)
			}
		}
		if a.config.OnTransition != nil {
			a.config.OnTransition(t)
		}
	}
}
