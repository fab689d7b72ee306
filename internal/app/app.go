// Package app runs the gesture control session: it pulls frames from the
// camera, classifies the hands found in them and dispatches the resulting
// gestures.
package app

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

// Session end reasons.
const (
	EndQuit        = "quit"
	EndCancelled   = "cancelled"
	EndAcquisition = "acquisition_failed"
	// EndFault marks a session that ended in a panic.
	EndFault = "fault"
)

// Display shows annotated frames. Show reports whether the user asked to quit.
type Display interface {
	Show(frame *gocv.Mat) bool
	Close() error
}

// Observer receives every annotated frame and every gesture of a session.
// Both calls are made from the session loop and must not block.
type Observer interface {
	OnFrame(frame *gocv.Mat)
	OnGesture(evt gesture.Event)
}

// Config wires the collaborators of a session.
type Config struct {
	Camera     capture.Camera
	Detector   detector.Detector
	Classifier *gesture.Classifier
	Dispatcher action.Dispatcher

	// Display is optional; nil runs headless.
	Display Display
	// Store is optional; when set each session and its gestures are journaled.
	Store *store.Store
	// CameraDevice is recorded with the session.
	CameraDevice int

	// Now overrides the clock used for gesture timing.
	Now func() time.Time
}

// Status is a snapshot of the running session.
type Status struct {
	SessionID   string         `json:"session_id,omitempty"`
	Running     bool           `json:"running"`
	Enabled     bool           `json:"enabled"`
	Frames      int64          `json:"frames"`
	Gestures    int64          `json:"gestures"`
	LastGesture *gesture.Event `json:"last_gesture,omitempty"`
}

// App is the gesture control application.
type App struct {
	config Config
	logger zerolog.Logger

	enabled  atomic.Bool
	running  atomic.Bool
	frames   atomic.Int64
	gestures atomic.Int64

	mu          sync.RWMutex
	observers   []Observer
	sessionID   string
	lastGesture *gesture.Event
}

// New creates an App. Detection starts enabled.
func New(config Config) *App {
	if config.Classifier == nil {
		config.Classifier = gesture.NewClassifier(gesture.DefaultConfig())
	}
	if config.Dispatcher == nil {
		config.Dispatcher = action.Multi{}
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	a := &App{
		config: config,
		logger: log.With().Str("component", "app").Logger(),
	}
	a.enabled.Store(true)
	return a
}

// SetEnabled enables or disables hand detection. While disabled frames are
// still shown but no gestures are produced.
func (a *App) SetEnabled(enabled bool) {
	if a.enabled.Swap(enabled) != enabled {
		a.logger.Info().Bool("enabled", enabled).Msg("Gesture detection toggled")
	}
}

// IsEnabled returns whether hand detection is enabled.
func (a *App) IsEnabled() bool {
	return a.enabled.Load()
}

// AddObserver registers o for frames and gestures.
func (a *App) AddObserver(o Observer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.observers = append(a.observers, o)
}

// Status returns a snapshot of the current session.
func (a *App) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s := Status{
		SessionID: a.sessionID,
		Running:   a.running.Load(),
		Enabled:   a.enabled.Load(),
		Frames:    a.frames.Load(),
		Gestures:  a.gestures.Load(),
	}
	if a.lastGesture != nil {
		evt := *a.lastGesture
		s.LastGesture = &evt
	}
	return s
}

func (a *App) snapshotObservers() []Observer {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]Observer(nil), a.observers...)
}

func (a *App) recordGesture(evt gesture.Event) {
	a.gestures.Add(1)
	a.mu.Lock()
	a.lastGesture = &evt
	a.mu.Unlock()
}
