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

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 2).
	MaxHands int `yaml:"max_hands"`

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64 `yaml:"min_detection_confidence"`

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64 `yaml:"min_tracking_confidence"`

	// Script overrides the location of the MediaPipe service script.
	Script string `yaml:"script"`

	// Python overrides the interpreter used to run the service script.
	Python string `yaml:"python"`
}

// DefaultConfig returns the detector configuration used for gesture control.
func DefaultConfig() Config {
	return Config{
		MaxHands:        2,
		MinConfidence:   0.7,
		MinTrackingConf: 0.7,
	}
}

// Validate checks the hand count and confidence thresholds.
func (c Config) Validate() error {
	if c.MaxHands < 1 {
		return fmt.Errorf("max hands must be at least 1, got %d", c.MaxHands)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("detection confidence must be within [0, 1], got %v", c.MinConfidence)
	}
	if c.MinTrackingConf < 0 || c.MinTrackingConf > 1 {
		return fmt.Errorf("tracking confidence must be within [0, 1], got %v", c.MinTrackingConf)
	}
	return nil
}
