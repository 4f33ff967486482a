package cell

import (
	"github.com/reflux-run/reflux/engine"
	"github.com/reflux-run/reflux/graph"
	"github.com/reflux-run/reflux/history"
)

// Discrete is externally-written state that auto-resets to sentinel
// during the commit phase of whatever scope wrote it — an event pulse
// rather than persistent state. Maintain cells get the same behavior via
// WithResettingTo; Discrete is the standalone form for cells with no rule.
type Discrete[T comparable] struct {
	graph.SubjectNode
	ctrl     *engine.Controller
	value    T
	sentinel T
}

// NewDiscrete creates a Discrete cell holding sentinel until next written.
func NewDiscrete[T comparable](ctrl *engine.Controller, sentinel T) *Discrete[T] {
	d := &Discrete[T]{ctrl: ctrl, value: sentinel, sentinel: sentinel}
	d.SubjectNode = graph.NewSubjectNode(0, nil)
	return d
}

// Read returns the current value, tracking a dependency.
func (d *Discrete[T]) Read() (T, error) {
	if err := d.ctrl.Used(d); err != nil {
		var zero T
		return zero, err
	}
	return d.value, nil
}

// Write assigns v for the remainder of the writing pass; commit resets it
// back to sentinel.
func (d *Discrete[T]) Write(v T) error {
	if !d.ctrl.Active() {
		return history.ErrInactive
	}
	if d.value == v {
		return nil
	}
	old := d.value
	d.value = v
	if err := d.ctrl.OnUndo(func() { d.value = old }); err != nil {
		return err
	}
	if err := d.ctrl.Changed(d); err != nil {
		return err
	}
	return d.ctrl.OnCommit(d.resetToSentinel)
}

func (d *Discrete[T]) resetToSentinel() error {
	if d.value == d.sentinel {
		return nil
	}
	old := d.value
	d.value = d.sentinel
	return d.ctrl.OnUndo(func() { d.value = old })
}
