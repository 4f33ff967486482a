package collection

import (
	"github.com/reflux-run/reflux/engine"
	"github.com/reflux-run/reflux/graph"
	"github.com/reflux-run/reflux/history"
)

type opKind int

const (
	opAdd opKind = iota
	opRemove
)

type setOp[T any] struct {
	kind  opKind
	value T
}

// Set is the reactive base set that OrderedIndex, Subset, and Observing
// are built over. Each Add/Remove inside an atomic scope records an
// operation into a pending log, visible to listeners for the rest of the
// pass and cleared during commit — the same transient-during-the-pass
// idiom as a Discrete cell's value, applied to a log instead of a scalar.
type Set[T comparable] struct {
	graph.SubjectNode
	ctrl         *engine.Controller
	members      map[T]struct{}
	pending      []setOp[T]
	pendingReset bool
}

// NewSet creates a Set seeded with initial members. Seeding does not
// record pending ops — there is no "previous state" to diff against yet.
func NewSet[T comparable](ctrl *engine.Controller, initial ...T) *Set[T] {
	s := &Set[T]{ctrl: ctrl, members: make(map[T]struct{}, len(initial))}
	s.SubjectNode = graph.NewSubjectNode(0, nil)
	for _, v := range initial {
		s.members[v] = struct{}{}
	}
	return s
}

// Contains reports base membership without engine tracking — callers that
// need reactive tracking should go through Members or TrackedPendingOps.
func (s *Set[T]) Contains(v T) bool {
	_, ok := s.members[v]
	return ok
}

// Members returns the set's current members, tracking a dependency.
func (s *Set[T]) Members() ([]T, error) {
	if err := s.ctrl.Used(s); err != nil {
		return nil, err
	}
	out := make([]T, 0, len(s.members))
	for v := range s.members {
		out = append(out, v)
	}
	return out, nil
}

// TrackedPendingOps tracks a dependency and returns the ops recorded this
// pass, most-recently-recorded first — matching the LIFO order the rest of
// this runtime processes its logs in (the undo stack, the subject/listener
// link chains).
func (s *Set[T]) TrackedPendingOps() ([]setOp[T], error) {
	if err := s.ctrl.Used(s); err != nil {
		return nil, err
	}
	out := make([]setOp[T], len(s.pending))
	for i, op := range s.pending {
		out[len(s.pending)-1-i] = op
	}
	return out, nil
}

// Add inserts v if absent. Adding an existing member is a no-op.
func (s *Set[T]) Add(v T) error {
	if !s.ctrl.Active() {
		return history.ErrInactive
	}
	if _, ok := s.members[v]; ok {
		return nil
	}
	s.members[v] = struct{}{}
	return s.recordOp(setOp[T]{kind: opAdd, value: v})
}

// Remove deletes v if present. Removing an absent member is a no-op.
func (s *Set[T]) Remove(v T) error {
	if !s.ctrl.Active() {
		return history.ErrInactive
	}
	if _, ok := s.members[v]; !ok {
		return nil
	}
	delete(s.members, v)
	return s.recordOp(setOp[T]{kind: opRemove, value: v})
}

func (s *Set[T]) recordOp(op setOp[T]) error {
	s.pending = append(s.pending, op)
	if err := s.ctrl.OnUndo(func() { s.pending = s.pending[:len(s.pending)-1] }); err != nil {
		return err
	}
	if !s.pendingReset {
		s.pendingReset = true
		if err := s.ctrl.OnCommit(func() error {
			s.pending = nil
			s.pendingReset = false
			return nil
		}); err != nil {
			return err
		}
	}
	switch op.kind {
	case opAdd:
		v := op.value
		if err := s.ctrl.OnUndo(func() { delete(s.members, v) }); err != nil {
			return err
		}
	case opRemove:
		v := op.value
		if err := s.ctrl.OnUndo(func() { s.members[v] = struct{}{} }); err != nil {
			return err
		}
	}
	return s.ctrl.Changed(s)
}
