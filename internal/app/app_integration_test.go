package app

import (
	"context"
	"errors"
	"image"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/action"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

const (
	frameWidth  = 640
	frameHeight = 480
)

// stepClock advances by step on every call.
type stepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func newStepClock(step time.Duration) *stepClock {
	return &stepClock{now: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), step: step}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.step)
	return c.now
}

// fakeDisplay asks to quit after quitAfter frames (never when zero).
type fakeDisplay struct {
	quitAfter int
	shown     int
	closed    bool
}

func (d *fakeDisplay) Show(*gocv.Mat) bool {
	d.shown++
	return d.quitAfter > 0 && d.shown >= d.quitAfter
}

func (d *fakeDisplay) Close() error {
	d.closed = true
	return nil
}

type recordingObserver struct {
	frames   int
	gestures []gesture.Kind
}

func (o *recordingObserver) OnFrame(frame *gocv.Mat) {
	if !frame.Empty() {
		o.frames++
	}
}

func (o *recordingObserver) OnGesture(evt gesture.Event) {
	o.gestures = append(o.gestures, evt.Kind)
}

func hand(thumb, index image.Point) []detector.HandLandmarks {
	return []detector.HandLandmarks{detector.HandAt("Right", thumb, index, frameWidth, frameHeight)}
}

// pinchThenSwipe yields ZoomIn on the first frame, ZoomOut plus
// PreviousSlide on the second and nothing on the third.
func pinchThenSwipe() [][]detector.HandLandmarks {
	return [][]detector.HandLandmarks{
		hand(image.Pt(100, 100), image.Pt(110, 100)),
		hand(image.Pt(100, 300), image.Pt(200, 300)),
		nil,
	}
}

type harness struct {
	camera   *capture.MockCamera
	detector *detector.MockDetector
	recorder *action.Recorder
	frames   []*gocv.Mat
}

func newHarness(t *testing.T, frames int, loop bool) *harness {
	t.Helper()
	h := &harness{
		frames:   capture.BlankFrames(frames, frameWidth, frameHeight),
		detector: detector.NewMockDetector(),
		recorder: action.NewRecorder(),
	}
	h.camera = capture.NewMockCamera(h.frames, loop)
	t.Cleanup(func() {
		for _, f := range h.frames {
			f.Close()
		}
	})
	return h
}

func (h *harness) config() Config {
	return Config{
		Camera:     h.camera,
		Detector:   h.detector,
		Classifier: gesture.NewClassifier(gesture.DefaultConfig()),
		Dispatcher: h.recorder,
		Now:        newStepClock(100 * time.Millisecond).Now,
	}
}

func TestApp_Run_ClassifiesAndDispatches(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	h := newHarness(t, 3, false)
	h.detector.SetScript(pinchThenSwipe())

	obs := &recordingObserver{}
	a := New(h.config())
	a.AddObserver(obs)

	err := a.Run(context.Background())
	require.ErrorIs(t, err, capture.ErrAcquisition)

	want := []gesture.Kind{gesture.ZoomIn, gesture.ZoomOut, gesture.PreviousSlide}
	assert.Equal(t, want, h.recorder.Kinds())
	assert.Equal(t, want, obs.gestures)
	assert.Equal(t, 3, obs.frames)
	assert.Equal(t, 3, h.detector.Calls())

	status := a.Status()
	assert.False(t, status.Running)
	assert.EqualValues(t, 3, status.Frames)
	assert.EqualValues(t, 3, status.Gestures)
	require.NotNil(t, status.LastGesture)
	assert.Equal(t, gesture.PreviousSlide, status.LastGesture.Kind)
	assert.NotEmpty(t, status.SessionID)
}

func TestApp_Run_ReleasesResourcesOnAcquisitionFailure(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	h := newHarness(t, 2, false)
	display := &fakeDisplay{}
	cfg := h.config()
	cfg.Display = display

	err := New(cfg).Run(context.Background())

	require.ErrorIs(t, err, capture.ErrAcquisition)
	assert.True(t, h.camera.Released())
	assert.True(t, h.detector.Closed())
	assert.True(t, display.closed)
	assert.Equal(t, 2, display.shown)
}

func TestApp_Run_QuitKey(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	h := newHarness(t, 1, true)
	display := &fakeDisplay{quitAfter: 5}
	cfg := h.config()
	cfg.Display = display

	err := New(cfg).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 5, display.shown)
	assert.True(t, h.camera.Released())
	assert.True(t, h.detector.Closed())
	assert.True(t, display.closed)
}

func TestApp_Run_Cancelled(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	h := newHarness(t, 1, true)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New(h.config()).Run(ctx)

	require.NoError(t, err)
	assert.True(t, h.camera.Released())
	assert.Zero(t, h.detector.Calls())
}

func TestApp_Run_CancelWhileRunning(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	h := newHarness(t, 1, true)
	a := New(h.config())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, func() bool { return a.Status().Frames > 10 }, 5*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.True(t, h.camera.Released())
}

func TestApp_Run_Disabled(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	h := newHarness(t, 3, false)
	h.detector.SetScript(pinchThenSwipe())

	a := New(h.config())
	a.SetEnabled(false)
	require.False(t, a.IsEnabled())

	err := a.Run(context.Background())

	require.ErrorIs(t, err, capture.ErrAcquisition)
	assert.Zero(t, h.detector.Calls())
	assert.Empty(t, h.recorder.Kinds())
	assert.EqualValues(t, 3, a.Status().Frames)
}

func TestApp_Run_DetectionAndDispatchErrorsAreNotFatal(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	h := newHarness(t, 3, false)
	h.detector.SetError(errors.New("model crashed"))

	err := New(h.config()).Run(context.Background())
	require.ErrorIs(t, err, capture.ErrAcquisition)
	assert.Equal(t, 3, h.detector.Calls())
	assert.Empty(t, h.recorder.Kinds())

	h = newHarness(t, 3, false)
	h.detector.SetScript(pinchThenSwipe())
	h.recorder.SetError(errors.New("no display"))

	a := New(h.config())
	err = a.Run(context.Background())
	require.ErrorIs(t, err, capture.ErrAcquisition)
	assert.Len(t, h.recorder.Kinds(), 3, "every gesture is still attempted")
	assert.EqualValues(t, 3, a.Status().Gestures)
}

func TestApp_Run_Journal(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer s.Close()

	h := newHarness(t, 3, false)
	h.detector.SetScript(pinchThenSwipe())
	cfg := h.config()
	cfg.Store = s
	cfg.CameraDevice = 1

	a := New(cfg)
	require.ErrorIs(t, a.Run(context.Background()), capture.ErrAcquisition)

	sess, err := s.Sessions().GetByID(a.Status().SessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, sess.Camera)
	assert.Equal(t, "shared", sess.Tracking)
	assert.Equal(t, 3, sess.Frames)
	assert.Equal(t, EndAcquisition, sess.EndReason)
	require.NotNil(t, sess.EndedAt)

	events, err := s.Events().ListBySession(sess.ID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "zoom_in", events[0].Kind)
	assert.Equal(t, "Right", events[0].Hand)

	counts, err := s.Events().CountByKind(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"zoom_in": 1, "zoom_out": 1, "previous_slide": 1}, counts)
}

// panicDispatcher panics on every gesture.
type panicDispatcher struct{}

func (panicDispatcher) Dispatch(context.Context, gesture.Event) error {
	panic("injector crashed")
}

func TestApp_Run_ReleasesResourcesOnPanic(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer s.Close()

	h := newHarness(t, 3, false)
	h.detector.SetScript(pinchThenSwipe())
	display := &fakeDisplay{}
	cfg := h.config()
	cfg.Dispatcher = panicDispatcher{}
	cfg.Display = display
	cfg.Store = s

	a := New(cfg)
	require.PanicsWithValue(t, "injector crashed", func() {
		_ = a.Run(context.Background())
	})

	assert.True(t, h.camera.Released())
	assert.True(t, h.detector.Closed())
	assert.True(t, display.closed)
	assert.False(t, a.Status().Running)

	sess, err := s.Sessions().GetByID(a.Status().SessionID)
	require.NoError(t, err)
	assert.Equal(t, EndFault, sess.EndReason)
	assert.Equal(t, 1, sess.Frames)
	require.NotNil(t, sess.EndedAt)
}

func TestApp_Run_CameraOpenFailure(t *testing.T) {
	d := detector.NewMockDetector()
	a := New(Config{
		Camera:   capture.NewCamera(capture.Config{Device: 99}),
		Detector: d,
	})

	err := a.Run(context.Background())
	if err == nil {
		t.Skip("camera 99 unexpectedly available")
	}
	assert.True(t, d.Closed())
	assert.False(t, a.Status().Running)
}
