package detector

import (
	"errors"
	"sync"
	"sync/atomic"

	"gocv.io/x/gocv"
)

var (
	// ErrTimestampOrder is returned when a frame timestamp does not increase.
	ErrTimestampOrder = errors.New("frame timestamp must be strictly increasing")
	// ErrClosed is returned when submitting to a closed landmarker.
	ErrClosed = errors.New("landmarker is closed")
)

// Result is one completed detection. The receiver owns Image and must
// release it with Release.
type Result struct {
	Hands       []HandLandmarks
	TimestampMs int64
	Image       *gocv.Mat
	Err         error
}

// Release closes the result image, if any.
func (r *Result) Release() {
	if r.Image != nil {
		r.Image.Close()
		r.Image = nil
	}
}

type job struct {
	frame       *gocv.Mat
	timestampMs int64
}

// AsyncLandmarker runs a Detector on its own goroutine and delivers results
// on a channel. At most one detection is in flight; frames submitted while
// the detector is busy are released and counted as skipped.
type AsyncLandmarker struct {
	detector Detector
	jobs     chan job
	results  chan Result
	done     chan struct{}

	mu     sync.Mutex
	lastTS int64
	seenTS bool
	closed bool

	inFlight atomic.Bool
	skipped  atomic.Uint64
}

// NewAsyncLandmarker starts the detection worker for d.
func NewAsyncLandmarker(d Detector) *AsyncLandmarker {
	l := &AsyncLandmarker{
		detector: d,
		jobs:     make(chan job, 1),
		results:  make(chan Result, 1),
		done:     make(chan struct{}),
	}
	go l.run()
	return l
}

// DetectAsync submits a frame for detection and takes ownership of it.
// It never blocks. It returns true if the frame was accepted.
func (l *AsyncLandmarker) DetectAsync(frame *gocv.Mat, timestampMs int64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		release(frame)
		return false, ErrClosed
	}
	if l.seenTS && timestampMs <= l.lastTS {
		release(frame)
		return false, ErrTimestampOrder
	}
	l.lastTS = timestampMs
	l.seenTS = true

	if !l.inFlight.CompareAndSwap(false, true) {
		l.skipped.Add(1)
		release(frame)
		return false, nil
	}

	l.jobs <- job{frame: frame, timestampMs: timestampMs}
	return true, nil
}

// Results returns the channel completed detections are delivered on.
// It is closed after Close.
func (l *AsyncLandmarker) Results() <-chan Result {
	return l.results
}

// Skipped returns how many frames were released because a detection was in flight.
func (l *AsyncLandmarker) Skipped() uint64 {
	return l.skipped.Load()
}

// Close stops the worker, discards undelivered results and closes the detector.
func (l *AsyncLandmarker) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.jobs)
	l.mu.Unlock()

	for {
		select {
		case r, ok := <-l.results:
			if !ok {
				<-l.done
				return l.detector.Close()
			}
			r.Release()
		case <-l.done:
			return l.detector.Close()
		}
	}
}

func (l *AsyncLandmarker) run() {
	defer close(l.done)
	defer close(l.results)

	for j := range l.jobs {
		hands, err := l.detector.Detect(j.frame)
		l.inFlight.Store(false)
		l.results <- Result{
			Hands:       hands,
			TimestampMs: j.timestampMs,
			Image:       j.frame,
			Err:         err,
		}
	}
}

func release(frame *gocv.Mat) {
	if frame != nil {
		frame.Close()
	}
}
