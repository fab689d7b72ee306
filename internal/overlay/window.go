package overlay

import "gocv.io/x/gocv"

// DefaultTitle is the title of the preview window.
const DefaultTitle = "Gesture Control"

// DefaultQuitKey ends the session when pressed in the preview window.
const DefaultQuitKey = 'q'

// Window shows annotated frames and polls the keyboard.
type Window struct {
	win     *gocv.Window
	quitKey int
}

// NewWindow opens a preview window. It must be called from the thread that
// runs the capture loop.
func NewWindow(title string, quitKey rune) *Window {
	if title == "" {
		title = DefaultTitle
	}
	if quitKey == 0 {
		quitKey = DefaultQuitKey
	}
	return &Window{
		win:     gocv.NewWindow(title),
		quitKey: int(quitKey),
	}
}

// Show displays frame and reports whether the quit key was pressed.
func (w *Window) Show(frame *gocv.Mat) bool {
	w.win.IMShow(*frame)
	return IsQuitKey(w.win.WaitKey(1), w.quitKey)
}

// Close destroys the window.
func (w *Window) Close() error {
	return w.win.Close()
}

// IsQuitKey reports whether the WaitKey result key matches quit. WaitKey
// returns -1 when nothing was pressed and may carry modifier bits above the
// low byte.
func IsQuitKey(key, quit int) bool {
	if key < 0 {
		return false
	}
	return key&0xFF == quit
}
