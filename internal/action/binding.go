// Package action turns classified gestures into host input.
package action

import (
	"fmt"
	"maps"
	"strings"

	"github.com/ayusman/mudra/internal/gesture"
)

// Binding is the key combination sent for a gesture.
type Binding struct {
	Key       string   `json:"key" yaml:"key"`
	Modifiers []string `json:"modifiers,omitempty" yaml:"modifiers,omitempty"`
}

// String renders the binding as "ctrl+=".
func (b Binding) String() string {
	if len(b.Modifiers) == 0 {
		return b.Key
	}
	return strings.Join(b.Modifiers, "+") + "+" + b.Key
}

// Validate rejects empty keys and unknown modifiers.
func (b Binding) Validate() error {
	if b.Key == "" {
		return fmt.Errorf("binding key is required")
	}
	for _, m := range b.Modifiers {
		if !knownModifiers[strings.ToLower(m)] {
			return fmt.Errorf("unknown modifier %q", m)
		}
	}
	return nil
}

var knownModifiers = map[string]bool{
	"ctrl":    true,
	"control": true,
	"alt":     true,
	"option":  true,
	"shift":   true,
	"cmd":     true,
	"command": true,
}

// Bindings maps each gesture to its key combination.
type Bindings map[gesture.Kind]Binding

// DefaultBindings returns the zoom and slide navigation keys.
func DefaultBindings() Bindings {
	return Bindings{
		gesture.ZoomIn:        {Key: "=", Modifiers: []string{"ctrl"}},
		gesture.ZoomOut:       {Key: "-", Modifiers: []string{"ctrl"}},
		gesture.NextSlide:     {Key: "down"},
		gesture.PreviousSlide: {Key: "up"},
	}
}

// Merge returns a copy of b with every binding in overrides applied.
func (b Bindings) Merge(overrides Bindings) Bindings {
	out := maps.Clone(b)
	if out == nil {
		out = Bindings{}
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// Validate checks every binding and its gesture.
func (b Bindings) Validate() error {
	for k, v := range b {
		if !k.Valid() {
			return fmt.Errorf("binding for unknown gesture %q", k)
		}
		if err := v.Validate(); err != nil {
			return fmt.Errorf("binding for %s: %w", k, err)
		}
	}
	return nil
}
