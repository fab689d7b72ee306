package server

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/gesture"
)

// subscriberBuffer is the number of gesture messages queued per client before
// new messages are dropped for it.
const subscriberBuffer = 16

// GestureMessage is the websocket payload for one gesture.
type GestureMessage struct {
	Kind      gesture.Kind `json:"kind"`
	Name      string       `json:"name"`
	Hand      string       `json:"hand,omitempty"`
	Timestamp int64        `json:"timestamp"`
}

// Hub sits between the session loop and the HTTP clients. It keeps the most
// recent annotated frame as JPEG and fans gestures out to subscribers. Its
// observer methods never block the loop.
type Hub struct {
	logger zerolog.Logger

	frameMu sync.RWMutex
	jpeg    []byte
	seq     uint64
	// encodeEvery limits JPEG encoding to every n-th frame.
	encodeEvery int
	counter     int

	subMu       sync.Mutex
	subscribers map[chan []byte]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		logger:      log.With().Str("component", "hub").Logger(),
		encodeEvery: 2,
		subscribers: make(map[chan []byte]struct{}),
	}
}

// OnFrame encodes every encodeEvery-th frame as the latest JPEG.
func (h *Hub) OnFrame(frame *gocv.Mat) {
	if frame == nil || frame.Empty() {
		return
	}
	h.counter++
	if h.counter%h.encodeEvery != 0 {
		return
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		h.logger.Debug().Err(err).Msg("Failed to encode frame")
		return
	}
	data := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	h.frameMu.Lock()
	h.jpeg = data
	h.seq++
	h.frameMu.Unlock()
}

// Frame returns the latest JPEG and its sequence number. The sequence is
// zero until the first frame has been encoded.
func (h *Hub) Frame() ([]byte, uint64) {
	h.frameMu.RLock()
	defer h.frameMu.RUnlock()
	return h.jpeg, h.seq
}

// OnGesture broadcasts evt to every subscriber with room in its queue.
func (h *Hub) OnGesture(evt gesture.Event) {
	msg, err := json.Marshal(GestureMessage{
		Kind:      evt.Kind,
		Name:      evt.Name(),
		Hand:      evt.Hand,
		Timestamp: evt.At.UnixMilli(),
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to marshal gesture")
		return
	}
	h.broadcast(msg)
}

func (h *Hub) broadcast(msg []byte) {
	h.subMu.Lock()
	defer h.subMu.Unlock()
	for ch := range h.subscribers {
		select {
		case ch <- msg:
		default:
		}
	}
}

// Subscribe registers a gesture subscriber. The returned function removes it
// and closes the channel.
func (h *Hub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, subscriberBuffer)

	h.subMu.Lock()
	h.subscribers[ch] = struct{}{}
	h.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.subMu.Lock()
			delete(h.subscribers, ch)
			h.subMu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of connected gesture subscribers.
func (h *Hub) Subscribers() int {
	h.subMu.Lock()
	defer h.subMu.Unlock()
	return len(h.subscribers)
}
