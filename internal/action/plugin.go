package action

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"sync"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/plugin"
)

// Plugin actions understood by key injection plugins.
const (
	PluginActionPress  = "press"
	PluginActionHotkey = "hotkey"
)

// PluginDispatcher forwards gestures to an external plugin process.
type PluginDispatcher struct {
	manager  *plugin.Manager
	executor *plugin.Executor
	name     string

	mu       sync.RWMutex
	bindings Bindings
}

// NewPluginDispatcher dispatches to the plugin called name. The plugin is
// looked up on every dispatch so a rediscovery takes effect immediately.
func NewPluginDispatcher(manager *plugin.Manager, executor *plugin.Executor, name string, bindings Bindings) *PluginDispatcher {
	return &PluginDispatcher{
		manager:  manager,
		executor: executor,
		name:     name,
		bindings: maps.Clone(bindings),
	}
}

// SetBinding replaces the binding for one gesture.
func (p *PluginDispatcher) SetBinding(kind gesture.Kind, b Binding) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bindings == nil {
		p.bindings = Bindings{}
	}
	p.bindings[kind] = b
}

// Request builds the plugin request for evt.
func (p *PluginDispatcher) Request(evt gesture.Event) (*plugin.Request, bool, error) {
	p.mu.RLock()
	b, ok := p.bindings[evt.Kind]
	p.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	params, err := json.Marshal(b)
	if err != nil {
		return nil, false, fmt.Errorf("marshal binding: %w", err)
	}

	action := PluginActionPress
	if len(b.Modifiers) > 0 {
		action = PluginActionHotkey
	}

	return &plugin.Request{
		Action:  action,
		Gesture: string(evt.Kind),
		Params:  params,
	}, true, nil
}

// Dispatch runs the plugin and checks its response.
func (p *PluginDispatcher) Dispatch(ctx context.Context, evt gesture.Event) error {
	req, ok, err := p.Request(evt)
	if err != nil || !ok {
		return err
	}

	plug, err := p.manager.Get(p.name)
	if err != nil {
		return fmt.Errorf("plugin %s: %w", p.name, err)
	}
	if !plug.Manifest.Supports(req.Action) {
		return fmt.Errorf("plugin %s does not support %q", p.name, req.Action)
	}

	resp, err := p.executor.Execute(ctx, plug, req)
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("plugin %s: %s", p.name, resp.Error)
	}
	return nil
}
