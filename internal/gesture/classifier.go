package gesture

import (
	"fmt"
	"image"
	"maps"
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ayusman/mudra/internal/detector"
)

// Default classification thresholds, in pixels.
const (
	DefaultPinchThreshold  = 30
	DefaultPinchHysteresis = 20
	DefaultSwipeThreshold  = 30
	DefaultSwipeDebounce   = 500 * time.Millisecond
)

// TrackingMode selects how the previous index fingertip is remembered when
// more than one hand is visible.
type TrackingMode string

const (
	// TrackShared keeps a single cursor for all hands. With two hands in view
	// the last hand processed overwrites the cursor of the first.
	TrackShared TrackingMode = "shared"
	// TrackPerHand keeps one cursor per hand slot (handedness).
	TrackPerHand TrackingMode = "per-hand"
)

// SharedSlot is the cursor key used in TrackShared mode.
const SharedSlot = ""

// Config holds the classifier thresholds.
type Config struct {
	// PinchThreshold is the distance below which a pinch zooms in.
	PinchThreshold float64 `yaml:"pinch_threshold"`
	// PinchHysteresis widens the zoom-out boundary to PinchThreshold+PinchHysteresis.
	PinchHysteresis float64 `yaml:"pinch_hysteresis"`
	// SwipeThreshold is the vertical travel between two frames that counts as a swipe.
	SwipeThreshold float64 `yaml:"swipe_threshold"`
	// SwipeDebounce is the minimum time between two accepted swipes.
	SwipeDebounce time.Duration `yaml:"swipe_debounce"`
	// Tracking selects shared or per-hand cursor tracking.
	Tracking TrackingMode `yaml:"tracking"`
}

// DefaultConfig returns the standard thresholds with shared tracking.
func DefaultConfig() Config {
	return Config{
		PinchThreshold:  DefaultPinchThreshold,
		PinchHysteresis: DefaultPinchHysteresis,
		SwipeThreshold:  DefaultSwipeThreshold,
		SwipeDebounce:   DefaultSwipeDebounce,
		Tracking:        TrackShared,
	}
}

// Validate checks that the thresholds are usable.
func (c Config) Validate() error {
	if c.PinchThreshold <= 0 {
		return fmt.Errorf("pinch threshold must be positive, got %v", c.PinchThreshold)
	}
	if c.PinchHysteresis < 0 {
		return fmt.Errorf("pinch hysteresis must not be negative, got %v", c.PinchHysteresis)
	}
	if c.SwipeThreshold <= 0 {
		return fmt.Errorf("swipe threshold must be positive, got %v", c.SwipeThreshold)
	}
	if c.SwipeDebounce < 0 {
		return fmt.Errorf("swipe debounce must not be negative, got %v", c.SwipeDebounce)
	}
	switch c.Tracking {
	case TrackShared, TrackPerHand:
	default:
		return fmt.Errorf("unknown tracking mode %q", c.Tracking)
	}
	return nil
}

// Hand holds the two tracked fingertips of one detected hand, in pixels.
type Hand struct {
	Slot  string
	Thumb image.Point
	Index image.Point
}

// Frame is the landmark snapshot of one camera frame.
type Frame struct {
	Width  int
	Height int
	Hands  []Hand
}

// FrameFromLandmarks converts detector output into pixel space.
func FrameFromLandmarks(hands []detector.HandLandmarks, width, height int) Frame {
	f := Frame{Width: width, Height: height}
	if len(hands) == 0 {
		return f
	}
	f.Hands = make([]Hand, len(hands))
	for i := range hands {
		f.Hands[i] = Hand{
			Slot:  hands[i].Handedness,
			Thumb: hands[i].ThumbTipPixel(width, height),
			Index: hands[i].IndexTipPixel(width, height),
		}
	}
	return f
}

// State is the tracking memory carried from one frame to the next. The zero
// value is the state at session start.
type State struct {
	// Cursors holds the last index fingertip position per tracking slot.
	Cursors map[string]image.Point
	// LastSwipe is when the last swipe was accepted.
	LastSwipe time.Time
}

// Previous returns the remembered index fingertip for slot.
func (s State) Previous(slot string) (image.Point, bool) {
	p, ok := s.Cursors[slot]
	return p, ok
}

// Classifier turns landmark frames into gesture events.
type Classifier struct {
	cfg Config
}

// NewClassifier creates a classifier with the given thresholds.
func NewClassifier(cfg Config) *Classifier {
	return &Classifier{cfg: cfg}
}

// Config returns the classifier thresholds.
func (c *Classifier) Config() Config {
	return c.cfg
}

// PinchDistance is the Euclidean pixel distance between two fingertips.
func PinchDistance(thumb, index image.Point) float64 {
	return r2.Norm(r2.Sub(vec(thumb), vec(index)))
}

func vec(p image.Point) r2.Vec {
	return r2.Vec{X: float64(p.X), Y: float64(p.Y)}
}

// Pinch classifies a pinch distance. Distances inside
// [PinchThreshold, PinchThreshold+PinchHysteresis] produce nothing.
func (c *Classifier) Pinch(distance float64) (Kind, bool) {
	switch {
	case distance < c.cfg.PinchThreshold:
		return ZoomIn, true
	case distance > c.cfg.PinchThreshold+c.cfg.PinchHysteresis:
		return ZoomOut, true
	default:
		return "", false
	}
}

// Slot returns the cursor key used for the i-th hand of a frame.
func (c *Classifier) Slot(h Hand, i int) string {
	if c.cfg.Tracking != TrackPerHand {
		return SharedSlot
	}
	if h.Slot != "" {
		return h.Slot
	}
	return fmt.Sprintf("hand-%d", i)
}

// slots returns the cursor key of every hand in a frame. In per-hand mode a
// label repeated within the frame (MediaPipe may report two "Right" hands)
// gets a numbered key from its second occurrence on, so the hands never
// share a cursor.
func (c *Classifier) slots(hands []Hand) []string {
	out := make([]string, len(hands))
	seen := make(map[string]int, len(hands))
	for i, h := range hands {
		slot := c.Slot(h, i)
		if n := seen[slot]; n > 0 && slot != SharedSlot {
			seen[slot] = n + 1
			slot = fmt.Sprintf("%s-%d", slot, n+1)
		} else {
			seen[slot] = 1
		}
		out[i] = slot
	}
	return out
}

// Classify processes one frame. Hands are handled in order; for each hand the
// pinch rule runs first, then the swipe rule. The returned state replaces st;
// st itself is not modified. A frame without hands returns st unchanged.
func (c *Classifier) Classify(frame Frame, st State, now time.Time) ([]Event, State) {
	if len(frame.Hands) == 0 {
		return nil, st
	}

	next := State{
		Cursors:   maps.Clone(st.Cursors),
		LastSwipe: st.LastSwipe,
	}
	if next.Cursors == nil {
		next.Cursors = make(map[string]image.Point, len(frame.Hands))
	}

	slots := c.slots(frame.Hands)
	var events []Event
	for i, h := range frame.Hands {
		if kind, ok := c.Pinch(PinchDistance(h.Thumb, h.Index)); ok {
			events = append(events, Event{Kind: kind, Hand: h.Slot, At: now})
		}

		slot := slots[i]
		if prev, ok := next.Cursors[slot]; ok {
			if kind, ok := c.swipe(h.Index.Y-prev.Y, now.Sub(next.LastSwipe)); ok {
				next.LastSwipe = now
				events = append(events, Event{Kind: kind, Hand: h.Slot, At: now})
			}
		}
		next.Cursors[slot] = h.Index
	}

	return events, next
}

// swipe classifies a vertical fingertip delta given the time since the last
// accepted swipe. Upward travel (negative dy) advances the slides.
func (c *Classifier) swipe(dy int, sinceLast time.Duration) (Kind, bool) {
	if math.Abs(float64(dy)) <= c.cfg.SwipeThreshold || sinceLast < c.cfg.SwipeDebounce {
		return "", false
	}
	if dy < 0 {
		return NextSlide, true
	}
	return PreviousSlide, true
}
