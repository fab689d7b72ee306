// Package gesture classifies pinch and swipe gestures from tracked fingertips.
package gesture

import (
	"fmt"
	"time"
)

// Kind is one of the gestures the classifier emits.
type Kind string

// The gestures the classifier can emit.
const (
	ZoomIn        Kind = "zoom_in"
	ZoomOut       Kind = "zoom_out"
	NextSlide     Kind = "next_slide"
	PreviousSlide Kind = "previous_slide"
)

// Kinds lists every gesture kind in display order.
var Kinds = []Kind{ZoomIn, ZoomOut, NextSlide, PreviousSlide}

var kindNames = map[Kind]string{
	ZoomIn:        "Zoom In",
	ZoomOut:       "Zoom Out",
	NextSlide:     "Next Slide",
	PreviousSlide: "Previous Slide",
}

// String returns the human-readable gesture name shown on the overlay.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return string(k)
}

// Valid reports whether k is a known gesture kind.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseKind parses the wire form of a gesture kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown gesture %q", s)
	}
	return k, nil
}

// Event is a classified gesture.
type Event struct {
	Kind Kind      `json:"kind"`
	Hand string    `json:"hand,omitempty"`
	At   time.Time `json:"at"`
}

// Name returns the display name of the event's gesture.
func (e Event) Name() string {
	return e.Kind.String()
}
