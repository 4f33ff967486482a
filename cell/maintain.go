package cell

import (
	"github.com/reflux-run/reflux/engine"
	"github.com/reflux-run/reflux/graph"
	"github.com/reflux-run/reflux/history"
)

// Maintain is an eager, writable derived cell: its rule re-runs whenever
// the engine schedules it (any of its dependencies changed), and external
// code may also Write it directly — the temperature converter's two
// Maintain cells, one per direction, are the canonical example: each
// reads the other and is also itself directly assignable.
type Maintain[T comparable] struct {
	graph.SubjectNode
	graph.ListenerNode
	ctrl      *engine.Controller
	rule      func(prev T) T
	value     T
	hasValue  bool
	resetting bool
	sentinel  T
}

// MaintainOption configures a Maintain cell at construction.
type MaintainOption[T comparable] func(*Maintain[T])

// WithInitially seeds the cell's value without running the rule.
func WithInitially[T comparable](v T) MaintainOption[T] {
	return func(m *Maintain[T]) { m.value, m.hasValue = v, true }
}

// WithMake seeds the initial value by calling make once, before the cell
// is linked into any atomic scope. §9's open question on make-style
// initializers reading other cells is resolved by construction: make runs
// outside Atomically, so any Read it performs on another cell fails fast
// with history.ErrInactive rather than silently succeeding with undefined
// dependency-tracking semantics.
func WithMake[T comparable](make func() T) MaintainOption[T] {
	return func(m *Maintain[T]) { m.value, m.hasValue = make(), true }
}

// WithResettingTo makes the cell discrete (§4.D): after any pass in which
// it was written, its value is reset to sentinel during that scope's
// commit phase, so external code observes sentinel again once the scope
// returns.
func WithResettingTo[T comparable](sentinel T) MaintainOption[T] {
	return func(m *Maintain[T]) { m.resetting, m.sentinel = true, sentinel }
}

// NewMaintain creates a Maintain cell governed by rule. If no seed option
// is given, rule runs once immediately, in its own atomic scope, to
// establish the initial value and dependency links.
func NewMaintain[T comparable](ctrl *engine.Controller, rule func(prev T) T, opts ...MaintainOption[T]) (*Maintain[T], error) {
	m := &Maintain[T]{ctrl: ctrl, rule: rule}
	m.SubjectNode = graph.NewSubjectNode(0, nil)
	for _, opt := range opts {
		opt(m)
	}
	if !m.hasValue {
		if err := ctrl.Atomically(func() error { return ctrl.Initialize(m) }); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Layer reports the cell's topological depth. Maintain is both a Subject
// and a Listener; the two embedded nodes would otherwise leave Layer
// ambiguous, so it is resolved here to the listener's depth (the depth
// derived from the cell's own reads), which is also what dependents
// reading this cell as a Subject should be scheduled above.
func (m *Maintain[T]) Layer() int { return m.ListenerNode.Layer() }

func (m *Maintain[T]) Dirty() bool { return true }

// Run re-evaluates rule against the cell's previous value.
func (m *Maintain[T]) Run() error {
	return m.setValue(m.rule(m.value))
}

func (m *Maintain[T]) setValue(v T) error {
	if m.hasValue && m.value == v {
		return nil
	}
	old, hadValue := m.value, m.hasValue
	m.value, m.hasValue = v, true
	if err := m.ctrl.OnUndo(func() { m.value, m.hasValue = old, hadValue }); err != nil {
		return err
	}
	if err := m.ctrl.Changed(m); err != nil {
		return err
	}
	if m.resetting {
		return m.ctrl.OnCommit(m.resetToSentinel)
	}
	return nil
}

// resetToSentinel restores the sentinel after a successful commit, without
// going through Changed: the reset must not trigger a fresh recalc pass —
// it is a transient value visible only to listeners scheduled within the
// writing pass, gone by the time external code regains control.
func (m *Maintain[T]) resetToSentinel() error {
	if !m.hasValue || m.value == m.sentinel {
		return nil
	}
	old := m.value
	m.value = m.sentinel
	return m.ctrl.OnUndo(func() { m.value = old })
}

// Dispose unlinks the cell from every subject it reads and cancels any
// pending schedule entry.
func (m *Maintain[T]) Dispose() {
	graph.Dispose(m)
	m.ctrl.Cancel(m)
}

// Read returns the current value, tracking a dependency.
func (m *Maintain[T]) Read() (T, error) {
	if err := m.ctrl.Used(m); err != nil {
		var zero T
		return zero, err
	}
	return m.value, nil
}

// Write directly assigns v, bypassing rule. Used for user-driven edits
// such as the temperature converter's Celsius assignment, which must
// still invalidate the Fahrenheit Maintain on the other side.
func (m *Maintain[T]) Write(v T) error {
	if !m.ctrl.Active() {
		return history.ErrInactive
	}
	return m.setValue(v)
}
