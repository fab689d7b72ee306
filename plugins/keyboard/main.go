// Package main provides the keyboard plugin. It presses the key combination
// it is given via AppleScript on macOS and xdotool elsewhere.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/ayusman/mudra/internal/plugin"
)

// KeyParams is the binding sent with press and hotkey requests.
type KeyParams struct {
	Key       string   `json:"key"`
	Modifiers []string `json:"modifiers"`
}

// appleModifiers maps modifier names to AppleScript equivalents.
var appleModifiers = map[string]string{
	"command": "command down",
	"cmd":     "command down",
	"option":  "option down",
	"alt":     "option down",
	"control": "control down",
	"ctrl":    "control down",
	"shift":   "shift down",
}

// appleKeyCodes are the named keys System Events cannot type as text.
var appleKeyCodes = map[string]int{
	"left":      123,
	"right":     124,
	"down":      125,
	"up":        126,
	"enter":     36,
	"tab":       48,
	"space":     49,
	"backspace": 51,
	"escape":    53,
	"pageup":    116,
	"pagedown":  121,
	"home":      115,
	"end":       119,
}

var xdoModifiers = map[string]string{
	"command": "super",
	"cmd":     "super",
	"option":  "alt",
	"alt":     "alt",
	"control": "ctrl",
	"ctrl":    "ctrl",
	"shift":   "shift",
}

var xdoKeys = map[string]string{
	"left":      "Left",
	"right":     "Right",
	"down":      "Down",
	"up":        "Up",
	"enter":     "Return",
	"tab":       "Tab",
	"space":     "space",
	"backspace": "BackSpace",
	"escape":    "Escape",
	"pageup":    "Prior",
	"pagedown":  "Next",
	"home":      "Home",
	"end":       "End",
	"=":         "equal",
	"-":         "minus",
	"+":         "plus",
}

func main() {
	resp := handle(os.Stdin, runtime.GOOS, run)
	json.NewEncoder(os.Stdout).Encode(resp)
}

// handle decodes one request from r and presses its keys with exec.
func handle(r io.Reader, goos string, exec func(name string, args ...string) error) plugin.Response {
	var req plugin.Request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return failure(fmt.Sprintf("failed to decode request: %v", err))
	}

	switch req.Action {
	case "press", "hotkey":
	default:
		return failure(fmt.Sprintf("unknown action: %s", req.Action))
	}

	var p KeyParams
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return failure(fmt.Sprintf("failed to parse params: %v", err))
	}
	if p.Key == "" {
		return failure("key is required")
	}

	name, args := command(goos, p)
	if err := exec(name, args...); err != nil {
		return failure(fmt.Sprintf("action %s failed: %v", req.Action, err))
	}
	return plugin.Response{Success: true}
}

func command(goos string, p KeyParams) (string, []string) {
	if goos == "darwin" {
		return "osascript", []string{"-e", buildAppleScript(p.Key, p.Modifiers)}
	}
	return "xdotool", []string{"key", buildXdoKey(p.Key, p.Modifiers)}
}

// buildAppleScript generates an AppleScript for the given key and modifiers.
func buildAppleScript(key string, modifiers []string) string {
	stroke := fmt.Sprintf("keystroke %q", key)
	if code, ok := appleKeyCodes[strings.ToLower(key)]; ok {
		stroke = fmt.Sprintf("key code %d", code)
	}

	var mods []string
	for _, m := range modifiers {
		if am, ok := appleModifiers[strings.ToLower(m)]; ok {
			mods = append(mods, am)
		}
	}

	script := `tell application "System Events" to ` + stroke
	if len(mods) > 0 {
		script += " using {" + strings.Join(mods, ", ") + "}"
	}
	return script
}

// buildXdoKey renders a combination such as "ctrl+equal".
func buildXdoKey(key string, modifiers []string) string {
	var parts []string
	for _, m := range modifiers {
		if xm, ok := xdoModifiers[strings.ToLower(m)]; ok {
			parts = append(parts, xm)
		}
	}
	if k, ok := xdoKeys[strings.ToLower(key)]; ok {
		key = k
	}
	return strings.Join(append(parts, key), "+")
}

func failure(msg string) plugin.Response {
	return plugin.Response{Success: false, Error: msg}
}

// run executes a command and returns any error with its output.
func run(name string, args ...string) error {
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
