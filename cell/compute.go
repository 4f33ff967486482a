package cell

import (
	"github.com/reflux-run/reflux/engine"
	"github.com/reflux-run/reflux/graph"
)

// Compute is a lazy derived cell: fn re-runs on read when dirty, and never
// runs otherwise. It is both a Subject (something may read it) and a
// Listener (its fn reads other cells), but unlike Maintain it never asks
// the engine to schedule it — Dirty always answers false, opting the cell
// out of eager recalculation.
type Compute[T comparable] struct {
	graph.SubjectNode
	graph.ListenerNode
	ctrl    *engine.Controller
	fn      func() (T, error)
	value   T
	dirty   bool
	settled bool // fn has produced at least one value
}

// NewCompute creates a Compute cell. fn runs for the first time on the
// first Read, not at construction — there is no value to compare against
// yet, so there is nothing useful to precompute.
func NewCompute[T comparable](ctrl *engine.Controller, fn func() (T, error)) *Compute[T] {
	c := &Compute[T]{ctrl: ctrl, fn: fn, dirty: true}
	c.SubjectNode = graph.NewSubjectNode(0, nil)
	return c
}

// Layer reports the cell's topological depth. Compute is both a Subject
// and a Listener; the two embedded nodes would otherwise leave Layer
// ambiguous, so it is resolved here to the listener's depth (the depth
// derived from the cell's own reads), which is also what dependents
// reading this cell as a Subject should be scheduled above.
func (c *Compute[T]) Layer() int { return c.ListenerNode.Layer() }

// Dirty always reports false to the engine: a Compute cell never asks to
// be scheduled eagerly. Staleness is tracked separately in c.dirty and
// resolved lazily, in Read.
func (c *Compute[T]) Dirty() bool {
	c.dirty = true
	return false
}

// Run recomputes the cell's value. It is invoked through
// engine.Controller.Initialize, from Read, so the recompute participates
// in the current pass's this_pass bookkeeping exactly like any eagerly
// scheduled listener — including order-inversion recovery, if some other
// listener reads this Compute mid-pass before one of its own sources
// settles.
func (c *Compute[T]) Run() error {
	newVal, err := c.fn()
	if err != nil {
		return err
	}
	c.dirty = false
	if c.settled && c.value == newVal {
		return nil
	}
	old, wasSettled := c.value, c.settled
	c.value, c.settled = newVal, true
	if err := c.ctrl.OnUndo(func() { c.value, c.settled = old, wasSettled }); err != nil {
		return err
	}
	return c.ctrl.Changed(c)
}

// Dispose unlinks the cell from every subject it reads and cancels any
// pending schedule entry. Required explicitly since Go has no
// deterministic finalizer suitable for scrubbing the subject chains this
// cell's reads install.
func (c *Compute[T]) Dispose() {
	graph.Dispose(c)
	c.ctrl.Cancel(c)
}

// Read recomputes fn if dirty, then returns the (now current) value and
// records a Used dependency on this Compute.
func (c *Compute[T]) Read() (T, error) {
	if c.dirty {
		if err := c.ctrl.Initialize(c); err != nil {
			var zero T
			return zero, err
		}
	}
	if err := c.ctrl.Used(c); err != nil {
		var zero T
		return zero, err
	}
	return c.value, nil
}
