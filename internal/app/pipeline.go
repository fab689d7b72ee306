package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/overlay"
)

// ErrAlreadyRunning is returned by Run while a session is active.
var ErrAlreadyRunning = errors.New("session already running")

// Run executes one session until the quit key is pressed, ctx is cancelled
// or the camera stops delivering frames. The camera, the detector and the
// display are released on every exit path.
//
// Per frame the loop does:
//  1. acquire a frame and mirror it
//  2. detect hands (skipped while disabled)
//  3. classify and dispatch each gesture
//  4. annotate the frame and hand it to observers and the display
//
// A quit or a cancellation returns nil. An acquisition failure returns an
// error wrapping capture.ErrAcquisition.
func (a *App) Run(ctx context.Context) error {
	if !a.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer a.running.Store(false)

	defer a.release()

	if err := a.config.Camera.Open(); err != nil {
		return fmt.Errorf("failed to open camera: %w", err)
	}

	sessionID := uuid.NewString()
	a.mu.Lock()
	a.sessionID = sessionID
	a.mu.Unlock()
	a.frames.Store(0)
	a.gestures.Store(0)

	logger := a.logger.With().Str("session", sessionID).Logger()
	logger.Info().Msg("Session started")

	j := a.beginJournal(sessionID)
	// Every normal return sets reason; a panic leaves EndFault.
	reason := EndFault
	defer func() {
		var fault any
		if reason == EndFault {
			fault = recover()
			logger.Error().Interface("panic", fault).Msg("Session loop panicked")
		}
		j.end(a.config.Now(), int(a.frames.Load()), reason)
		logger.Info().
			Str("reason", reason).
			Int64("frames", a.frames.Load()).
			Int64("gestures", a.gestures.Load()).
			Msg("Session ended")
		if fault != nil {
			panic(fault)
		}
	}()

	observers := append(a.snapshotObservers(), j)

	var state gesture.State
	for {
		select {
		case <-ctx.Done():
			reason = EndCancelled
			return nil
		default:
		}

		frame, err := a.config.Camera.ReadFrame()
		if err != nil {
			if !errors.Is(err, capture.ErrAcquisition) {
				err = fmt.Errorf("%w: %w", capture.ErrAcquisition, err)
			}
			logger.Error().Err(err).Msg("Camera stopped delivering frames")
			reason = EndAcquisition
			return err
		}

		var quit bool
		state, quit = a.step(ctx, frame, state, observers)
		frame.Close()

		if quit {
			reason = EndQuit
			return nil
		}
	}
}

// step processes one frame and returns the new tracking state and whether the
// display asked to quit.
func (a *App) step(ctx context.Context, frame *gocv.Mat, state gesture.State, observers []Observer) (gesture.State, bool) {
	a.frames.Add(1)
	capture.Mirror(frame)

	var hands []detector.HandLandmarks
	if a.IsEnabled() {
		var err error
		hands, err = a.config.Detector.Detect(frame)
		if err != nil {
			a.logger.Warn().Err(err).Msg("Hand detection failed")
			hands = nil
		}
	}

	lf := gesture.FrameFromLandmarks(hands, frame.Cols(), frame.Rows())
	events, state := a.config.Classifier.Classify(lf, state, a.config.Now())

	label := ""
	for _, evt := range events {
		a.logger.Info().Str("gesture", string(evt.Kind)).Str("hand", evt.Hand).Msg(evt.Name())
		if err := a.config.Dispatcher.Dispatch(ctx, evt); err != nil {
			a.logger.Error().Err(err).Str("gesture", string(evt.Kind)).Msg("Failed to dispatch gesture")
		}
		a.recordGesture(evt)
		for _, o := range observers {
			o.OnGesture(evt)
		}
		label = overlay.Label(evt.Kind)
	}

	overlay.Annotate(frame, lf.Hands, label)
	for _, o := range observers {
		o.OnFrame(frame)
	}

	if a.config.Display != nil {
		return state, a.config.Display.Show(frame)
	}
	return state, false
}

func (a *App) release() {
	if err := a.config.Camera.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("Error closing camera")
	}
	if a.config.Detector != nil {
		if err := a.config.Detector.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("Error closing detector")
		}
	}
	if a.config.Display != nil {
		if err := a.config.Display.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("Error closing display")
		}
	}
}
