package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/thumbscroll/internal/detector"
	"github.com/ayusman/thumbscroll/internal/gesture"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLandmarksHub_Broadcast(t *testing.T) {
	hub := NewLandmarksHub(quietLogger())
	ts := httptest.NewServer(hub)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	defer conn.Close()

	waitUntil(t, func() bool { return hub.Clients() == 1 })

	hand := detector.ThumbsUpLandmarks()
	hub.Broadcast(LandmarksMessage{
		TimestampMs: 66,
		Hands:       []detector.HandLandmarks{hand},
		Label:       gesture.Like,
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read error = %v", err)
	}

	var msg LandmarksMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal error = %v", err)
	}
	if msg.TimestampMs != 66 || msg.Label != gesture.Like || len(msg.Hands) != 1 {
		t.Errorf("message = %+v", msg)
	}
	if msg.Hands[0].Points[detector.ThumbTip] != hand.Points[detector.ThumbTip] {
		t.Error("thumb tip did not round trip")
	}
}

func TestLandmarksHub_NoClients(t *testing.T) {
	hub := NewLandmarksHub(nil)

	// Must not block or count drops.
	hub.Broadcast(LandmarksMessage{TimestampMs: 1})

	if hub.Dropped() != 0 {
		t.Errorf("Dropped() = %d, want 0", hub.Dropped())
	}
}

func TestLandmarksHub_ClientDisconnect(t *testing.T) {
	hub := NewLandmarksHub(quietLogger())
	ts := httptest.NewServer(hub)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	waitUntil(t, func() bool { return hub.Clients() == 1 })

	conn.Close()
	waitUntil(t, func() bool { return hub.Clients() == 0 })
}

func TestLandmarksHub_Origin(t *testing.T) {
	hub := NewLandmarksHub(quietLogger())
	ts := httptest.NewServer(hub)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")

	tests := []struct {
		name   string
		origin string
		allow  bool
	}{
		{name: "no origin", origin: "", allow: true},
		{name: "same origin", origin: ts.URL, allow: true},
		{name: "localhost page", origin: "http://localhost:3000", allow: true},
		{name: "loopback ipv6 page", origin: "http://[::1]:8080", allow: true},
		{name: "foreign page", origin: "https://example.com", allow: false},
		{name: "lookalike host", origin: "http://localhost.example.com", allow: false},
		{name: "malformed", origin: "::not a url", allow: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}

			conn, resp, err := websocket.DefaultDialer.Dial(url, header)
			if tt.allow {
				if err != nil {
					t.Fatalf("dial error = %v, want upgrade", err)
				}
				conn.Close()
				return
			}

			if err == nil {
				conn.Close()
				t.Fatal("dial succeeded, want origin rejected")
			}
			if resp == nil || resp.StatusCode != http.StatusForbidden {
				t.Errorf("response = %v, want 403", resp)
			}
		})
	}
}
