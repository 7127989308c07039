// Package config loads thumbscroll settings from defaults, an optional YAML
// file, THUMBSCROLL_* environment variables and command-line flags, in that
// order of increasing precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "THUMBSCROLL_"

// Scroll backends.
const (
	BackendRobotgo = "robotgo"
	BackendPlugin  = "plugin"
)

// Config is the complete application configuration.
type Config struct {
	Camera   CameraConfig   `yaml:"camera" envPrefix:"CAMERA_"`
	Detector DetectorConfig `yaml:"detector" envPrefix:"DETECTOR_"`
	Gesture  GestureConfig  `yaml:"gesture" envPrefix:"GESTURE_"`
	Display  DisplayConfig  `yaml:"display" envPrefix:"DISPLAY_"`
	Scroll   ScrollConfig   `yaml:"scroll" envPrefix:"SCROLL_"`
	Store    StoreConfig    `yaml:"store" envPrefix:"STORE_"`
	HTTP     HTTPConfig     `yaml:"http" envPrefix:"HTTP_"`
	MQTT     MQTTConfig     `yaml:"mqtt" envPrefix:"MQTT_"`
	Log      LogConfig      `yaml:"log" envPrefix:"LOG_"`
	Tray     bool           `yaml:"tray" env:"TRAY"`
}

type CameraConfig struct {
	Device int `yaml:"device" env:"DEVICE"`
	Width  int `yaml:"width" env:"WIDTH"`
	Height int `yaml:"height" env:"HEIGHT"`
	FPS    int `yaml:"fps" env:"FPS"`
}

type DetectorConfig struct {
	ModelPath        string  `yaml:"model_path" env:"MODEL_PATH"`
	MaxHands         int     `yaml:"max_hands" env:"MAX_HANDS"`
	MinDetectionConf float64 `yaml:"min_detection_confidence" env:"MIN_DETECTION_CONFIDENCE"`
	MinPresenceConf  float64 `yaml:"min_presence_confidence" env:"MIN_PRESENCE_CONFIDENCE"`
	MinTrackingConf  float64 `yaml:"min_tracking_confidence" env:"MIN_TRACKING_CONFIDENCE"`
}

// GestureConfig holds scroll timing. TimestampStep is the detector
// timestamp advance per frame.
type GestureConfig struct {
	ScrollInterval  time.Duration `yaml:"scroll_interval" env:"SCROLL_INTERVAL"`
	JoinTimeout     time.Duration `yaml:"join_timeout" env:"JOIN_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	TimestampStep   time.Duration `yaml:"timestamp_step" env:"TIMESTAMP_STEP"`
	RelayCapacity   int           `yaml:"relay_capacity" env:"RELAY_CAPACITY"`
	Enabled         bool          `yaml:"enabled" env:"ENABLED"`
}

type DisplayConfig struct {
	Headless bool   `yaml:"headless" env:"HEADLESS"`
	Title    string `yaml:"title" env:"TITLE"`
}

type ScrollConfig struct {
	Backend       string        `yaml:"backend" env:"BACKEND"`
	PluginDir     string        `yaml:"plugin_dir" env:"PLUGIN_DIR"`
	Plugin        string        `yaml:"plugin" env:"PLUGIN"`
	PluginTimeout time.Duration `yaml:"plugin_timeout" env:"PLUGIN_TIMEOUT"`
}

// StoreConfig enables the event log when Path is set.
type StoreConfig struct {
	Path string `yaml:"path" env:"PATH"`
}

// HTTPConfig enables the local API when Addr is set.
type HTTPConfig struct {
	Addr      string `yaml:"addr" env:"ADDR"`
	StaticDir string `yaml:"static_dir" env:"STATIC_DIR"`
}

// MQTTConfig enables event publishing when Broker is set.
type MQTTConfig struct {
	Broker      string `yaml:"broker" env:"BROKER"`
	ClientID    string `yaml:"client_id" env:"CLIENT_ID"`
	TopicPrefix string `yaml:"topic_prefix" env:"TOPIC_PREFIX"`
	QoS         byte   `yaml:"qos" env:"QOS"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Camera: CameraConfig{
			Device: 0,
			Width:  640,
			Height: 480,
			FPS:    30,
		},
		Detector: DetectorConfig{
			ModelPath:        "hand_landmarker.task",
			MaxHands:         2,
			MinDetectionConf: 0.5,
			MinPresenceConf:  0.5,
			MinTrackingConf:  0.5,
		},
		Gesture: GestureConfig{
			ScrollInterval:  50 * time.Millisecond,
			JoinTimeout:     100 * time.Millisecond,
			ShutdownTimeout: 500 * time.Millisecond,
			TimestampStep:   33 * time.Millisecond,
			RelayCapacity:   2,
			Enabled:         true,
		},
		Display: DisplayConfig{
			Title: "Hand Landmark Detection",
		},
		Scroll: ScrollConfig{
			Backend:       BackendRobotgo,
			PluginDir:     "plugins",
			Plugin:        "scroll",
			PluginTimeout: time.Second,
		},
		MQTT: MQTTConfig{
			TopicPrefix: "thumbscroll",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadFile overlays the YAML file at path onto cfg.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// ParseEnv overlays THUMBSCROLL_* environment variables onto cfg. Unset
// variables leave the current values untouched.
func ParseEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// ParseConfig builds the configuration from every source and parses args
// with fs. The YAML file is named by -config or THUMBSCROLL_CONFIG.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	if fs == nil {
		return Config{}, errors.New("flag parser is required")
	}
	if args == nil {
		args = []string{}
	}

	cfg := Default()

	path := configPath(args)
	if path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}

	var configFlag string
	fs.StringVar(&configFlag, "config", path, "path to a YAML config file")
	registerFlags(fs, &cfg)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// configPath finds the config file before flags are parsed, since flag
// defaults come from the file.
func configPath(args []string) string {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}
		name := strings.TrimLeft(arg, "-")
		if name == arg {
			continue
		}
		if v, ok := strings.CutPrefix(name, "config="); ok {
			return v
		}
		if name == "config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return os.Getenv(EnvPrefix + "CONFIG")
}

func registerFlags(fs *flag.FlagSet, cfg *Config) {
	fs.IntVar(&cfg.Camera.Device, "camera", cfg.Camera.Device, "camera device index")
	fs.IntVar(&cfg.Camera.FPS, "fps", cfg.Camera.FPS, "camera frames per second")
	fs.StringVar(&cfg.Detector.ModelPath, "model", cfg.Detector.ModelPath, "hand landmarker model file")
	fs.IntVar(&cfg.Detector.MaxHands, "num-hands", cfg.Detector.MaxHands, "maximum hands to detect")
	fs.Float64Var(&cfg.Detector.MinDetectionConf, "min-detection-confidence", cfg.Detector.MinDetectionConf, "minimum hand detection confidence")
	fs.Float64Var(&cfg.Detector.MinPresenceConf, "min-presence-confidence", cfg.Detector.MinPresenceConf, "minimum hand presence confidence")
	fs.Float64Var(&cfg.Detector.MinTrackingConf, "min-tracking-confidence", cfg.Detector.MinTrackingConf, "minimum hand tracking confidence")
	fs.DurationVar(&cfg.Gesture.ScrollInterval, "scroll-interval", cfg.Gesture.ScrollInterval, "pause between scroll steps")
	fs.BoolVar(&cfg.Display.Headless, "headless", cfg.Display.Headless, "run without a preview window")
	fs.StringVar(&cfg.Scroll.Backend, "scroll-backend", cfg.Scroll.Backend, "scroll backend: robotgo or plugin")
	fs.StringVar(&cfg.Scroll.PluginDir, "plugin-dir", cfg.Scroll.PluginDir, "directory holding scroll plugins")
	fs.StringVar(&cfg.Scroll.Plugin, "plugin", cfg.Scroll.Plugin, "scroll plugin name")
	fs.StringVar(&cfg.Store.Path, "db", cfg.Store.Path, "SQLite event log path (empty disables)")
	fs.StringVar(&cfg.HTTP.Addr, "http", cfg.HTTP.Addr, "HTTP API listen address (empty disables)")
	fs.StringVar(&cfg.MQTT.Broker, "mqtt-broker", cfg.MQTT.Broker, "MQTT broker host:port (empty disables)")
	fs.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "log level: debug, info, warn, error")
	fs.StringVar(&cfg.Log.Format, "log-format", cfg.Log.Format, "log format: text or json")
	fs.BoolVar(&cfg.Tray, "tray", cfg.Tray, "show a system tray menu")
}

// Validate rejects settings the pipeline cannot run with.
func (c Config) Validate() error {
	var errs []error

	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		errs = append(errs, fmt.Errorf("camera size %dx%d must be positive", c.Camera.Width, c.Camera.Height))
	}
	if c.Camera.FPS <= 0 {
		errs = append(errs, fmt.Errorf("camera fps %d must be positive", c.Camera.FPS))
	}
	if c.Detector.MaxHands < 1 {
		errs = append(errs, fmt.Errorf("max hands %d must be at least 1", c.Detector.MaxHands))
	}
	confidences := []struct {
		name  string
		value float64
	}{
		{"min detection confidence", c.Detector.MinDetectionConf},
		{"min presence confidence", c.Detector.MinPresenceConf},
		{"min tracking confidence", c.Detector.MinTrackingConf},
	}
	for _, conf := range confidences {
		if conf.value < 0 || conf.value > 1 {
			errs = append(errs, fmt.Errorf("%s %v must be within [0,1]", conf.name, conf.value))
		}
	}
	if c.Gesture.ScrollInterval <= 0 {
		errs = append(errs, errors.New("scroll interval must be positive"))
	}
	if c.Gesture.JoinTimeout <= 0 || c.Gesture.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("join timeouts must be positive"))
	}
	if c.Gesture.TimestampStep <= 0 {
		errs = append(errs, errors.New("timestamp step must be positive"))
	}
	if c.Gesture.RelayCapacity < 1 {
		errs = append(errs, fmt.Errorf("relay capacity %d must be at least 1", c.Gesture.RelayCapacity))
	}
	switch c.Scroll.Backend {
	case BackendRobotgo:
	case BackendPlugin:
		if c.Scroll.Plugin == "" {
			errs = append(errs, errors.New("scroll plugin name is required for the plugin backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown scroll backend %q", c.Scroll.Backend))
	}
	if c.MQTT.QoS > 2 {
		errs = append(errs, fmt.Errorf("mqtt qos %d must be 0, 1 or 2", c.MQTT.QoS))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}

	return errors.Join(errs...)
}
