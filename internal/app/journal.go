package app

import (
	"time"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

// journal records a session and its gestures in the store. A journal without
// a store does nothing. Write failures are logged and never end the session.
type journal struct {
	store     *store.Store
	sessionID string
	logger    zerolog.Logger
}

func (a *App) beginJournal(sessionID string) *journal {
	j := &journal{
		store:     a.config.Store,
		sessionID: sessionID,
		logger:    a.logger.With().Str("session", sessionID).Logger(),
	}
	if j.store == nil {
		return j
	}

	err := j.store.Sessions().Create(&store.Session{
		ID:        sessionID,
		Camera:    a.config.CameraDevice,
		Tracking:  string(a.config.Classifier.Config().Tracking),
		StartedAt: a.config.Now(),
	})
	if err != nil {
		j.logger.Error().Err(err).Msg("Failed to journal session, journaling disabled")
		j.store = nil
	}
	return j
}

func (j *journal) OnFrame(*gocv.Mat) {}

func (j *journal) OnGesture(evt gesture.Event) {
	if j.store == nil {
		return
	}
	err := j.store.Events().Create(&store.Event{
		SessionID:  j.sessionID,
		Kind:       string(evt.Kind),
		Hand:       evt.Hand,
		OccurredAt: evt.At,
	})
	if err != nil {
		j.logger.Error().Err(err).Str("gesture", string(evt.Kind)).Msg("Failed to journal gesture")
	}
}

func (j *journal) end(at time.Time, frames int, reason string) {
	if j.store == nil {
		return
	}
	if err := j.store.Sessions().End(j.sessionID, at, frames, reason); err != nil {
		j.logger.Error().Err(err).Msg("Failed to close session in journal")
	}
}
