package collection

import (
	"github.com/reflux-run/reflux/engine"
	"github.com/reflux-run/reflux/graph"
	"github.com/reflux-run/reflux/history"
)

// Subset is a set constrained to membership in a base Set: additions of
// non-members of base are silently dropped, and removals from base
// propagate as removals from the subset.
type Subset[T comparable] struct {
	graph.SubjectNode
	graph.ListenerNode
	ctrl    *engine.Controller
	base    *Set[T]
	members map[T]struct{}
}

// NewSubset creates a Subset over base.
func NewSubset[T comparable](ctrl *engine.Controller, base *Set[T]) (*Subset[T], error) {
	ss := &Subset[T]{ctrl: ctrl, base: base, members: make(map[T]struct{})}
	ss.SubjectNode = graph.NewSubjectNode(0, nil)
	if err := ctrl.Atomically(func() error { return ctrl.Initialize(ss) }); err != nil {
		return nil, err
	}
	return ss, nil
}

// Layer resolves the Subject/Listener embedding ambiguity to the
// listener's depth, matching the layer dependents should be scheduled
// above.
func (ss *Subset[T]) Layer() int { return ss.ListenerNode.Layer() }

func (ss *Subset[T]) Dirty() bool { return true }

// Run watches base's pending ops for removals and propagates them. It does
// not watch for additions — membership in the subset only ever grows
// through an explicit Add call.
func (ss *Subset[T]) Run() error {
	ops, err := ss.base.TrackedPendingOps()
	if err != nil {
		return err
	}
	for _, op := range ops {
		if op.kind != opRemove {
			continue
		}
		if _, ok := ss.members[op.value]; !ok {
			continue
		}
		if err := ss.removeMember(op.value); err != nil {
			return err
		}
	}
	return nil
}

// Dispose unlinks the subset from base and cancels any pending schedule
// entry.
func (ss *Subset[T]) Dispose() {
	graph.Dispose(ss)
	ss.ctrl.Cancel(ss)
}

// Contains reports subset membership.
func (ss *Subset[T]) Contains(v T) bool {
	_, ok := ss.members[v]
	return ok
}

// Add inserts v, silently dropped if v is not a member of base.
func (ss *Subset[T]) Add(v T) error {
	if !ss.ctrl.Active() {
		return history.ErrInactive
	}
	if !ss.base.Contains(v) {
		return nil
	}
	if _, ok := ss.members[v]; ok {
		return nil
	}
	ss.members[v] = struct{}{}
	if err := ss.ctrl.OnUndo(func() { delete(ss.members, v) }); err != nil {
		return err
	}
	return ss.ctrl.Changed(ss)
}

// Remove deletes v from the subset directly, independent of base.
func (ss *Subset[T]) Remove(v T) error {
	if !ss.ctrl.Active() {
		return history.ErrInactive
	}
	if _, ok := ss.members[v]; !ok {
		return nil
	}
	return ss.removeMember(v)
}

func (ss *Subset[T]) removeMember(v T) error {
	delete(ss.members, v)
	if err := ss.ctrl.OnUndo(func() { ss.members[v] = struct{}{} }); err != nil {
		return err
	}
	return ss.ctrl.Changed(ss)
}
