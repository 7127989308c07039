package e2e

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/thumbscroll/internal/app"
	"github.com/ayusman/thumbscroll/internal/capture"
	"github.com/ayusman/thumbscroll/internal/detector"
	"github.com/ayusman/thumbscroll/internal/gesture"
	"github.com/ayusman/thumbscroll/internal/server"
	"github.com/ayusman/thumbscroll/internal/server/api"
	"github.com/ayusman/thumbscroll/internal/store"
	"github.com/ayusman/thumbscroll/testdata"
)

type scrollCounter struct {
	mu    sync.Mutex
	units map[int]int
}

func (c *scrollCounter) Scroll(units int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.units == nil {
		c.units = make(map[int]int)
	}
	c.units[units]++
}

func (c *scrollCounter) count(units int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.units[units]
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func getJSON(t *testing.T, client *http.Client, url string, v any) {
	t.Helper()
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s error = %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s status = %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}

func TestE2E_CompleteWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := store.New(filepath.Join(t.TempDir(), "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	frames := testdata.Sequence(4)
	defer testdata.CloseAll(frames)

	mockDetector := detector.NewMockDetector()
	mockDetector.SetHands([]detector.HandLandmarks{detector.ThumbsUpLandmarks()})
	scroller := &scrollCounter{}
	stream := server.NewFrameBuffer()

	application, err := app.New(app.Config{
		Camera:         capture.NewMockCamera(frames, true),
		Detector:       mockDetector,
		Scroller:       scroller,
		Store:          s,
		Frames:         stream,
		ScrollInterval: 5 * time.Millisecond,
		Enabled:        true,
		Logger:         logger,
	})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}

	srv := server.New(server.Config{
		Store:      s,
		Controller: application,
		Frames:     stream,
		Logger:     logger,
	})
	ts := httptest.NewServer(srv)
	defer ts.Close()
	client := ts.Client()

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- application.Run(ctx) }()
	defer func() {
		cancel()
		<-runDone
	}()

	t.Run("ThumbsUpScrollsDown", func(t *testing.T) {
		waitFor(t, "downward scrolling", func() bool { return scroller.count(-6) >= 3 })

		var st api.Status
		getJSON(t, client, ts.URL+"/api/status", &st)
		if st.Label != gesture.Like {
			t.Errorf("status label = %v, want LIKE", st.Label)
		}
		if !st.Scrolling || !st.Enabled {
			t.Errorf("status = %+v, want enabled and scrolling", st)
		}
	})

	t.Run("PreviewStreamServesFrames", func(t *testing.T) {
		reqCtx, reqCancel := context.WithTimeout(ctx, 3*time.Second)
		defer reqCancel()

		req, _ := http.NewRequestWithContext(reqCtx, http.MethodGet, ts.URL+"/api/stream", nil)
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("GET stream error = %v", err)
		}
		defer resp.Body.Close()

		r := bufio.NewReader(resp.Body)
		r.ReadString('\n') // boundary
		r.ReadString('\n') // content type
		lengthLine, _ := r.ReadString('\n')
		r.ReadString('\n') // blank line

		n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(lengthLine, "Content-Length:")))
		if err != nil {
			t.Fatalf("bad content length line %q", lengthLine)
		}
		data := make([]byte, n)
		if _, err := io.ReadFull(r, data); err != nil {
			t.Fatalf("read frame: %v", err)
		}

		img, err := testdata.Decode(data)
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		defer img.Close()
		if img.Cols() != testdata.FrameWidth || img.Rows() != testdata.FrameHeight {
			t.Errorf("stream frame %dx%d, want %dx%d", img.Cols(), img.Rows(), testdata.FrameWidth, testdata.FrameHeight)
		}
	})

	t.Run("DisableStopsScrolling", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/enabled", strings.NewReader(`{"enabled":false}`))
		req.Header.Set("Content-Type", "application/json")
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("PUT enabled error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("PUT enabled status = %d", resp.StatusCode)
		}

		var st api.Status
		getJSON(t, client, ts.URL+"/api/status", &st)
		if st.Scrolling || st.Label != gesture.None {
			t.Errorf("status = %+v, want stopped", st)
		}
	})

	t.Run("EventRecorded", func(t *testing.T) {
		type event struct {
			Label string `json:"label"`
			Ticks int64  `json:"ticks"`
			Open  bool   `json:"open"`
		}
		var events []event

		// The event is closed by the recorder shortly after the transition.
		waitFor(t, "closed event", func() bool {
			var body struct {
				Events []event `json:"events"`
			}
			getJSON(t, client, ts.URL+"/api/events", &body)
			events = body.Events
			return len(events) == 1 && !events[0].Open
		})

		if e := events[0]; e.Label != "LIKE" || e.Ticks < 3 {
			t.Errorf("event = %+v, want a LIKE event with ticks", e)
		}
	})

	t.Run("APIStillWorks", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/health")
		if err != nil {
			t.Fatalf("health check error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("health check failed after app operations")
		}
	})
}
