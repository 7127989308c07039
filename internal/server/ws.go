package server

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/thumbscroll/internal/detector"
	"github.com/ayusman/thumbscroll/internal/gesture"
)

const (
	writeWait      = time.Second
	clientQueueLen = 8
)

var upgrader = websocket.Upgrader{
	CheckOrigin: localOrigin,
}

// localOrigin accepts clients without an Origin header, same-origin pages
// and pages served from a loopback host.
func localOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}

	host := u.Hostname()
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// LandmarksMessage is sent to WebSocket clients for every detection result.
type LandmarksMessage struct {
	TimestampMs int64                    `json:"timestamp"`
	Hands       []detector.HandLandmarks `json:"hands"`
	Label       gesture.Label            `json:"label"`
}

// LandmarksHub broadcasts detection results to WebSocket clients. Broadcast
// never blocks: a client that falls behind loses messages.
type LandmarksHub struct {
	logger  *slog.Logger
	clients map[*websocket.Conn]chan []byte
	mu      sync.RWMutex
	dropped uint64
}

// NewLandmarksHub creates an empty hub.
func NewLandmarksHub(logger *slog.Logger) *LandmarksHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &LandmarksHub{
		logger:  logger,
		clients: make(map[*websocket.Conn]chan []byte),
	}
}

// Clients returns the number of connected clients.
func (h *LandmarksHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues msg for every client.
func (h *LandmarksHub) Broadcast(msg LandmarksMessage) {
	h.mu.RLock()
	if len(h.clients) == 0 {
		h.mu.RUnlock()
		return
	}
	h.mu.RUnlock()

	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Warn("marshal landmarks", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, queue := range h.clients {
		select {
		case queue <- data:
		default:
			h.dropped++
		}
	}
}

// Dropped returns how many messages were dropped for slow clients.
func (h *LandmarksHub) Dropped() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *LandmarksHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	queue := make(chan []byte, clientQueueLen)
	h.mu.Lock()
	h.clients[conn] = queue
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Reads detect the client closing the connection.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case data := <-queue:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.logger.Debug("websocket write failed", "error", err)
				return
			}
		}
	}
}
