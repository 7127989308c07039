package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"gocv.io/x/gocv"
)

// streamInterval paces MJPEG clients at roughly 15 FPS.
const streamInterval = 66 * time.Millisecond

// FrameBuffer holds the latest annotated frame as JPEG and serves it as an
// MJPEG stream. Frames are only encoded while a client is watching.
type FrameBuffer struct {
	mu      sync.Mutex
	cond    *sync.Cond
	jpeg    []byte
	seq     uint64
	closed  bool
	clients atomic.Int32
}

// NewFrameBuffer creates an empty FrameBuffer.
func NewFrameBuffer() *FrameBuffer {
	b := &FrameBuffer{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Watching reports whether any stream client is connected.
func (b *FrameBuffer) Watching() bool {
	return b.clients.Load() > 0
}

// Update encodes img and makes it the current frame. It is a no-op when
// nobody is watching.
func (b *FrameBuffer) Update(img *gocv.Mat) error {
	if !b.Watching() || img == nil || img.Empty() {
		return nil
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *img)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	data := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	b.Set(data)
	return nil
}

// Set stores an already encoded JPEG frame.
func (b *FrameBuffer) Set(jpeg []byte) {
	b.mu.Lock()
	b.jpeg = jpeg
	b.seq++
	b.mu.Unlock()
	b.cond.Broadcast()
}

// Close wakes all waiting clients and ends their streams.
func (b *FrameBuffer) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.cond.Broadcast()
}

// next blocks until a frame newer than seq is available, the buffer is
// closed or ctx is done.
func (b *FrameBuffer) next(ctx context.Context, seq uint64) ([]byte, uint64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for b.seq == seq && !b.closed && ctx.Err() == nil {
		b.cond.Wait()
	}
	if b.closed || ctx.Err() != nil {
		return nil, seq, false
	}
	return b.jpeg, b.seq, true
}

// ServeHTTP streams MJPEG frames to connected clients.
func (b *FrameBuffer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	b.clients.Add(1)
	defer b.clients.Add(-1)

	// Wake next() when the client goes away.
	stop := context.AfterFunc(r.Context(), func() {
		b.mu.Lock()
		b.mu.Unlock()
		b.cond.Broadcast()
	})
	defer stop()

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	var seq uint64
	for {
		frame, next, ok := b.next(r.Context(), seq)
		if !ok {
			return
		}
		seq = next

		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(frame))
		if _, err := w.Write(frame); err != nil {
			return
		}
		fmt.Fprintf(w, "\r\n")

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}

		select {
		case <-r.Context().Done():
			return
		case <-time.After(streamInterval):
		}
	}
}
