// Package overlay draws tracking markers and the gesture label on frames and
// shows them in a desktop window.
package overlay

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/gesture"
)

// Marker and label styling. gocv maps color.RGBA onto OpenCV's BGR order.
var (
	ThumbColor = color.RGBA{B: 255}
	IndexColor = color.RGBA{G: 255}
	LabelColor = color.RGBA{R: 255, G: 255}
)

const (
	markerRadius   = 10
	labelScale     = 1.0
	labelThickness = 2
)

// LabelOrigin is the baseline position of the gesture label.
var LabelOrigin = image.Point{X: 10, Y: 50}

// Label returns the overlay text for a gesture.
func Label(kind gesture.Kind) string {
	return "Gesture: " + kind.String()
}

// Annotate draws a filled marker on each hand's thumb tip and index
// fingertip and, when label is non-empty, the label text.
func Annotate(frame *gocv.Mat, hands []gesture.Hand, label string) {
	if frame == nil || frame.Empty() {
		return
	}

	for _, h := range hands {
		gocv.Circle(frame, h.Thumb, markerRadius, ThumbColor, -1)
		gocv.Circle(frame, h.Index, markerRadius, IndexColor, -1)
	}

	if label != "" {
		gocv.PutText(frame, label, LabelOrigin, gocv.FontHersheySimplex, labelScale, LabelColor, labelThickness)
	}
}
