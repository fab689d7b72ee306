// Package tray provides the system tray menu for mudra.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/gesture"
)

const (
	titleEnabled  = "● Enabled"
	titleDisabled = "○ Disabled"
)

// Tray represents the system tray application. It also observes the session
// so the menu shows the last gesture.
type Tray struct {
	onToggle func(enabled bool)
	onStatus func()
	onQuit   func()
	enabled  bool
	last     string
	mu       sync.RWMutex

	// Menu items stored for later updates
	menuToggle      *systray.MenuItem
	menuLastGesture *systray.MenuItem
}

// New creates a new Tray instance with enabled state set to true by default.
func New() *Tray {
	return &Tray{
		enabled: true,
	}
}

// OnToggle sets the callback function to be called when the enabled state is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnStatus sets the callback for the status page menu item. The item is only
// shown when a callback is set before Run.
func (t *Tray) OnStatus(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onStatus = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application. It must be called from the main
// goroutine and blocks until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit removes the tray icon and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
func (t *Tray) onReady() {
	systray.SetTitle("Mudra")
	systray.SetTooltip("Mudra Gesture Control")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle gesture detection")
	systray.AddSeparator()

	t.menuLastGesture = systray.AddMenuItem(lastGestureTitle(t.last), "Last detected gesture")
	t.menuLastGesture.Disable()
	systray.AddSeparator()

	var statusClicked chan struct{}
	if t.onStatus != nil {
		statusClicked = systray.AddMenuItem("Open Status Page", "Open the status page in a browser").ClickedCh
		systray.AddSeparator()
	}
	t.mu.Unlock()

	menuQuit := systray.AddMenuItem("Quit", "Quit Mudra")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-statusClicked:
				t.handleStatus()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

// handleToggle flips the enabled state and reports it to the callback.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) handleStatus() {
	t.mu.RLock()
	callback := t.onStatus
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetLastGesture updates the last gesture display in the menu.
func (t *Tray) SetLastGesture(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.last = name
	if t.menuLastGesture != nil {
		t.menuLastGesture.SetTitle(lastGestureTitle(name))
	}
}

// LastGesture returns the name shown in the menu.
func (t *Tray) LastGesture() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// OnFrame does nothing; the tray only follows gestures.
func (t *Tray) OnFrame(*gocv.Mat) {}

// OnGesture shows evt as the last gesture.
func (t *Tray) OnGesture(evt gesture.Event) {
	t.SetLastGesture(evt.Name())
}

func toggleTitle(enabled bool) string {
	if enabled {
		return titleEnabled
	}
	return titleDisabled
}

func lastGestureTitle(name string) string {
	if name == "" {
		return "Last: none"
	}
	return "Last: " + name
}
