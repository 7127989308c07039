package detector

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Detector defines the interface for hand detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns detected hand landmarks.
	// Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// RunningMode selects how the landmark model treats consecutive frames.
type RunningMode string

const (
	// ModeLiveStream tracks hands across frames of a video stream.
	ModeLiveStream RunningMode = "live_stream"
	// ModeImage runs a full detection on every frame independently.
	ModeImage RunningMode = "image"
)

// Config holds configuration options for hand detection.
type Config struct {
	// ModelPath is the MediaPipe hand landmarker model bundle.
	ModelPath string

	// MaxHands is the maximum number of hands to detect (default: 2).
	MaxHands int

	// MinDetectionConf is the minimum palm detection confidence (0.0-1.0).
	MinDetectionConf float64

	// MinPresenceConf is the minimum hand presence confidence (0.0-1.0).
	MinPresenceConf float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// Mode is the model running mode.
	Mode RunningMode
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		ModelPath:        "hand_landmarker.task",
		MaxHands:         2,
		MinDetectionConf: 0.5,
		MinPresenceConf:  0.5,
		MinTrackingConf:  0.5,
		Mode:             ModeLiveStream,
	}
}

// Validate reports the first out-of-range field.
func (c Config) Validate() error {
	if c.MaxHands < 1 {
		return fmt.Errorf("max hands must be at least 1, got %d", c.MaxHands)
	}
	confs := []struct {
		name  string
		value float64
	}{
		{"min detection confidence", c.MinDetectionConf},
		{"min presence confidence", c.MinPresenceConf},
		{"min tracking confidence", c.MinTrackingConf},
	}
	for _, conf := range confs {
		if conf.value < 0 || conf.value > 1 {
			return fmt.Errorf("%s must be within [0,1], got %g", conf.name, conf.value)
		}
	}
	switch c.Mode {
	case ModeLiveStream, ModeImage:
	default:
		return fmt.Errorf("unknown running mode %q", c.Mode)
	}
	return nil
}
