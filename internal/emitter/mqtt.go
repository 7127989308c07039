// Package emitter publishes gesture transitions to an MQTT broker.
package emitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/ayusman/thumbscroll/internal/gesture"
)

const (
	connectTimeout = 5 * time.Second
	publishTimeout = 2 * time.Second
	// disconnectQuiesceMs is the grace period given to in-flight messages.
	disconnectQuiesceMs = 250
)

// ErrNotConnected is returned by Publish before Connect succeeds or after
// the connection is lost.
var ErrNotConnected = errors.New("mqtt not connected")

// Config selects the broker and topic layout.
type Config struct {
	Broker      string // host:port or full URL
	ClientID    string
	TopicPrefix string
	QoS         byte
}

// Topic returns the topic transitions are published on.
func (c Config) Topic() string {
	return strings.TrimSuffix(c.TopicPrefix, "/") + "/gesture"
}

func (c Config) brokerURL() string {
	if strings.Contains(c.Broker, "://") {
		return c.Broker
	}
	return "tcp://" + c.Broker
}

// Message is the JSON payload of a transition.
type Message struct {
	From    gesture.Label `json:"from"`
	To      gesture.Label `json:"to"`
	At      time.Time     `json:"at"`
	Ticks   int64         `json:"ticks"`
	Status  string        `json:"status"`
	Session string        `json:"session"`
}

// Stats contains emitter statistics.
type Stats struct {
	Connected bool   `json:"connected"`
	Published uint64 `json:"published"`
	Errors    uint64 `json:"errors"`
}

// MQTTEmitter publishes transitions to an MQTT broker.
type MQTTEmitter struct {
	cfg     Config
	logger  *slog.Logger
	session string
	client  mqtt.Client

	mu        sync.RWMutex
	connected bool
	published uint64
	errors    uint64
}

// NewMQTTEmitter creates an emitter. A missing client ID is generated.
func NewMQTTEmitter(cfg Config, logger *slog.Logger) *MQTTEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	session := uuid.New().String()
	if cfg.ClientID == "" {
		cfg.ClientID = "thumbscroll-" + session[:8]
	}
	return &MQTTEmitter{
		cfg:     cfg,
		logger:  logger.With("component", "mqtt"),
		session: session,
	}
}

// Connect establishes the broker connection. The client reconnects on its
// own after a connection loss.
func (e *MQTTEmitter) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(e.cfg.brokerURL())
	opts.SetClientID(e.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		e.setConnected(true)
		e.logger.Info("mqtt connection established", "broker", e.cfg.Broker, "client_id", e.cfg.ClientID)
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		e.setConnected(false)
		e.logger.Warn("mqtt connection lost, will auto-reconnect", "error", err, "broker", e.cfg.Broker)
	}

	e.client = mqtt.NewClient(opts)

	e.logger.Info("connecting to mqtt broker", "broker", e.cfg.Broker)

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	token := e.client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		e.client.Disconnect(0)
		return fmt.Errorf("mqtt connect %s: %w", e.cfg.Broker, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect %s: %w", e.cfg.Broker, err)
	}

	e.setConnected(true)
	return nil
}

// Publish sends one transition.
func (e *MQTTEmitter) Publish(t gesture.Transition) error {
	if !e.isConnected() {
		e.countError()
		return ErrNotConnected
	}

	payload, err := json.Marshal(Message{
		From:    t.From,
		To:      t.To,
		At:      t.At,
		Ticks:   t.Ticks,
		Status:  t.Message(),
		Session: e.session,
	})
	if err != nil {
		e.countError()
		return fmt.Errorf("marshal transition: %w", err)
	}

	topic := e.cfg.Topic()
	token := e.client.Publish(topic, e.cfg.QoS, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		e.countError()
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		e.countError()
		return fmt.Errorf("publish failed: %w", err)
	}

	e.mu.Lock()
	e.published++
	e.mu.Unlock()

	e.logger.Debug("transition published", "topic", topic, "to", t.To, "size", len(payload))
	return nil
}

// Close disconnects from the broker.
func (e *MQTTEmitter) Close() error {
	if e.client != nil && e.client.IsConnected() {
		e.client.Disconnect(disconnectQuiesceMs)
		e.logger.Info("mqtt disconnected")
	}
	e.setConnected(false)
	return nil
}

// Stats returns emitter statistics.
func (e *MQTTEmitter) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Stats{
		Connected: e.connected,
		Published: e.published,
		Errors:    e.errors,
	}
}

func (e *MQTTEmitter) setConnected(v bool) {
	e.mu.Lock()
	e.connected = v
	e.mu.Unlock()
}

func (e *MQTTEmitter) isConnected() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.connected
}

func (e *MQTTEmitter) countError() {
	e.mu.Lock()
	e.errors++
	e.mu.Unlock()
}
