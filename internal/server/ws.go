package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Subscriber hands out gesture message feeds.
type Subscriber interface {
	Subscribe() (<-chan []byte, func())
}

// GestureFeedHandler pushes every gesture to websocket clients as JSON.
type GestureFeedHandler struct {
	hub    Subscriber
	logger zerolog.Logger
}

// NewGestureFeedHandler creates a handler fed by hub.
func NewGestureFeedHandler(hub Subscriber) *GestureFeedHandler {
	return &GestureFeedHandler{
		hub:    hub,
		logger: log.With().Str("component", "ws").Logger(),
	}
}

// ServeHTTP upgrades the connection and writes gestures until either side
// closes.
func (h *GestureFeedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	feed, unsubscribe := h.hub.Subscribe()
	defer unsubscribe()

	// The reader only handles control frames and notices the client leaving.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case msg, ok := <-feed:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
