// Package detector provides the hand landmark source used by the gesture loop.
package detector

import "image"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Point3D is a landmark position. X and Y are normalized to the frame
// dimensions; Z is the relative depth reported by the model.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// Pixel converts landmark idx to pixel coordinates for a frame of the given
// size. Fractional pixels are truncated toward zero.
func (h *HandLandmarks) Pixel(idx, width, height int) image.Point {
	if idx < 0 || idx >= NumLandmarks {
		return image.Point{}
	}
	p := h.Points[idx]
	return image.Point{
		X: int(p.X * float64(width)),
		Y: int(p.Y * float64(height)),
	}
}

// ThumbTipPixel returns the thumb tip in pixel coordinates.
func (h *HandLandmarks) ThumbTipPixel(width, height int) image.Point {
	return h.Pixel(ThumbTip, width, height)
}

// IndexTipPixel returns the index fingertip in pixel coordinates.
func (h *HandLandmarks) IndexTipPixel(width, height int) image.Point {
	return h.Pixel(IndexTip, width, height)
}
