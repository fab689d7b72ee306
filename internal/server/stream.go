package server

import (
	"fmt"
	"net/http"
	"time"
)

// streamInterval is how often a client is checked for a new frame (~15 FPS).
const streamInterval = 66 * time.Millisecond

// FrameSource provides the latest encoded frame and its sequence number.
type FrameSource interface {
	Frame() ([]byte, uint64)
}

// StreamHandler serves the annotated frames as MJPEG.
type StreamHandler struct {
	source   FrameSource
	interval time.Duration
}

// NewStreamHandler creates a new StreamHandler reading from source.
func NewStreamHandler(source FrameSource) *StreamHandler {
	return &StreamHandler{source: source, interval: streamInterval}
}

// ServeHTTP streams MJPEG frames until the client goes away. A frame is only
// written when it changed since the last write.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var last uint64
	for {
		if data, seq := h.source.Frame(); seq != last && len(data) > 0 {
			if err := writePart(w, data); err != nil {
				return
			}
			last = seq
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func writePart(w http.ResponseWriter, jpeg []byte) error {
	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpeg)); err != nil {
		return err
	}
	if _, err := w.Write(jpeg); err != nil {
		return err
	}
	if _, err := fmt.Fprint(w, "\r\n"); err != nil {
		return err
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
