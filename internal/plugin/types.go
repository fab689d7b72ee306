// Package plugin discovers and runs external action plugins. A plugin is an
// executable that reads one JSON Request on stdin and writes one JSON
// Response on stdout.
package plugin

import "encoding/json"

// Manifest describes a plugin's metadata and capabilities. It is read from
// plugin.json in the plugin's directory.
type Manifest struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Executable  string   `json:"executable"`
	Actions     []string `json:"actions"`
}

// Supports reports whether the plugin declares action.
func (m Manifest) Supports(action string) bool {
	for _, a := range m.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// Request is sent to a plugin for every dispatched gesture.
type Request struct {
	Action  string          `json:"action"`
	Gesture string          `json:"gesture"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response represents the response from a plugin execution.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
