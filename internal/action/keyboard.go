package action

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"sync"

	"github.com/go-vgo/robotgo"

	"github.com/ayusman/mudra/internal/gesture"
)

// robotgo spells some modifiers differently from the binding names.
var robotgoModifiers = map[string]string{
	"ctrl":    "ctrl",
	"control": "ctrl",
	"alt":     "alt",
	"option":  "alt",
	"shift":   "shift",
	"cmd":     "cmd",
	"command": "cmd",
}

// KeyboardDispatcher injects key presses into the host session.
type KeyboardDispatcher struct {
	mu       sync.RWMutex
	bindings Bindings
	tap      func(key string, args ...interface{}) error
}

// NewKeyboardDispatcher creates a dispatcher using robotgo for injection.
func NewKeyboardDispatcher(bindings Bindings) *KeyboardDispatcher {
	return &KeyboardDispatcher{
		bindings: maps.Clone(bindings),
		tap:      robotgo.KeyTap,
	}
}

// SetBinding replaces the binding for one gesture.
func (k *KeyboardDispatcher) SetBinding(kind gesture.Kind, b Binding) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.bindings == nil {
		k.bindings = Bindings{}
	}
	k.bindings[kind] = b
}

// Binding returns the binding for kind.
func (k *KeyboardDispatcher) Binding(kind gesture.Kind) (Binding, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	b, ok := k.bindings[kind]
	return b, ok
}

// Dispatch taps the bound key combination. Unbound gestures are ignored.
func (k *KeyboardDispatcher) Dispatch(ctx context.Context, evt gesture.Event) error {
	b, ok := k.Binding(evt.Kind)
	if !ok {
		return nil
	}

	args := make([]interface{}, 0, len(b.Modifiers))
	for _, m := range b.Modifiers {
		mod, ok := robotgoModifiers[strings.ToLower(m)]
		if !ok {
			return fmt.Errorf("unknown modifier %q for %s", m, evt.Kind)
		}
		args = append(args, mod)
	}

	if err := k.tap(b.Key, args...); err != nil {
		return fmt.Errorf("tap %s for %s: %w", b, evt.Kind, err)
	}
	return nil
}
