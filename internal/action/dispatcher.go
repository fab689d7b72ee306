package action

import (
	"context"
	"errors"
	"sync"

	"github.com/ayusman/mudra/internal/gesture"
)

// Dispatcher performs the host action for a gesture. Dispatch is synchronous;
// callers log a returned error and carry on.
type Dispatcher interface {
	Dispatch(ctx context.Context, evt gesture.Event) error
}

// Multi fans an event out to every dispatcher in order.
type Multi []Dispatcher

// Dispatch calls every dispatcher and joins their errors.
func (m Multi) Dispatch(ctx context.Context, evt gesture.Event) error {
	var errs []error
	for _, d := range m {
		if err := d.Dispatch(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Rebinder is implemented by dispatchers whose bindings can change while a
// session runs.
type Rebinder interface {
	SetBinding(kind gesture.Kind, b Binding)
}

// SetBinding forwards the binding to every member that accepts one.
func (m Multi) SetBinding(kind gesture.Kind, b Binding) {
	for _, d := range m {
		if r, ok := d.(Rebinder); ok {
			r.SetBinding(kind, b)
		}
	}
}

// Recorder is a Dispatcher that only remembers what it was asked to do.
type Recorder struct {
	mu     sync.Mutex
	events []gesture.Event
	err    error
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// SetError makes subsequent Dispatch calls fail with err after recording.
func (r *Recorder) SetError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Dispatch records evt.
func (r *Recorder) Dispatch(ctx context.Context, evt gesture.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return r.err
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []gesture.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]gesture.Event(nil), r.events...)
}

// Kinds returns the recorded gesture kinds in order.
func (r *Recorder) Kinds() []gesture.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]gesture.Kind, len(r.events))
	for i, e := range r.events {
		kinds[i] = e.Kind
	}
	return kinds
}
