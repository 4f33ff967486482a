package cell

import (
	"github.com/reflux-run/reflux/engine"
	"github.com/reflux-run/reflux/graph"
	"github.com/reflux-run/reflux/history"
)

// Value is externally-written state: a Subject with no rule of its own.
// Writes inside an atomic scope record a Changed; reads record a Used.
type Value[T comparable] struct {
	graph.SubjectNode
	ctrl  *engine.Controller
	value T
}

// NewValue creates a Value holding initial.
func NewValue[T comparable](ctrl *engine.Controller, initial T) *Value[T] {
	v := &Value[T]{ctrl: ctrl, value: initial}
	v.SubjectNode = graph.NewSubjectNode(0, nil)
	return v
}

// Read returns the current value, tracking a dependency if called from
// within a running listener.
func (v *Value[T]) Read() (T, error) {
	if err := v.ctrl.Used(v); err != nil {
		var zero T
		return zero, err
	}
	return v.value, nil
}

// Write assigns newValue. A write equal to the current value is a no-op —
// the same short-circuit the teacher's signal setters use to avoid waking
// readers that would see no change.
func (v *Value[T]) Write(newValue T) error {
	if !v.ctrl.Active() {
		return history.ErrInactive
	}
	if v.value == newValue {
		return nil
	}
	old := v.value
	v.value = newValue
	if err := v.ctrl.OnUndo(func() { v.value = old }); err != nil {
		return err
	}
	return v.ctrl.Changed(v)
}
