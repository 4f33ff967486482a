package collection

import (
	"cmp"
	"sort"

	"github.com/reflux-run/reflux/cell"
	"github.com/reflux-run/reflux/engine"
	"github.com/reflux-run/reflux/graph"
)

// Edit describes one slice splice: replacing the NewLength elements that
// now occupy [Start, Start+NewLength) in place of whatever previously
// occupied [Start, End) in the old view.
type Edit struct {
	Start, End, NewLength int
}

// OrderedIndex maintains a sorted view over a Set's members, keyed by
// keyFn and optionally reversed, and exposes a discrete changes cell: the
// list of edits produced this pass, applying which to the previous view
// yields the new one.
type OrderedIndex[T comparable, K cmp.Ordered] struct {
	graph.SubjectNode
	graph.ListenerNode
	ctrl    *engine.Controller
	source  *Set[T]
	reverse *cell.Value[bool]
	keyFn   func(T) K

	initialized  bool
	reverseVal   bool
	view         []T
	edits        []Edit
	editsReset   bool
}

// NewOrderedIndex creates an OrderedIndex and runs its rule once
// immediately, building the initial sorted view from source's current
// members.
func NewOrderedIndex[T comparable, K cmp.Ordered](ctrl *engine.Controller, source *Set[T], reverse *cell.Value[bool], keyFn func(T) K) (*OrderedIndex[T, K], error) {
	oi := &OrderedIndex[T, K]{ctrl: ctrl, source: source, reverse: reverse, keyFn: keyFn}
	oi.SubjectNode = graph.NewSubjectNode(0, nil)
	if err := ctrl.Atomically(func() error { return ctrl.Initialize(oi) }); err != nil {
		return nil, err
	}
	return oi, nil
}

// Layer resolves the Subject/Listener embedding ambiguity to the
// listener's depth, matching the layer dependents should be scheduled
// above.
func (oi *OrderedIndex[T, K]) Layer() int { return oi.ListenerNode.Layer() }

func (oi *OrderedIndex[T, K]) Dirty() bool { return true }

func (oi *OrderedIndex[T, K]) Run() error {
	rv, err := oi.reverse.Read()
	if err != nil {
		return err
	}

	if !oi.initialized {
		members, err := oi.source.Members()
		if err != nil {
			return err
		}
		view := append([]T{}, members...)
		oi.sortView(view, rv)
		oi.view = view
		oi.reverseVal = rv
		oi.initialized = true
		return nil
	}

	if rv != oi.reverseVal {
		return oi.fullReverse(rv)
	}

	ops, err := oi.source.TrackedPendingOps()
	if err != nil {
		return err
	}
	for _, op := range ops {
		switch op.kind {
		case opAdd:
			if err := oi.applyAdd(op.value); err != nil {
				return err
			}
		case opRemove:
			if err := oi.applyRemove(op.value); err != nil {
				return err
			}
		}
	}
	return nil
}

func (oi *OrderedIndex[T, K]) sortView(view []T, reverse bool) {
	sort.Slice(view, func(i, j int) bool { return oi.less(view[i], view[j], reverse) })
}

func (oi *OrderedIndex[T, K]) less(a, b T, reverse bool) bool {
	ka, kb := oi.keyFn(a), oi.keyFn(b)
	if reverse {
		return ka > kb
	}
	return ka < kb
}

func (oi *OrderedIndex[T, K]) insertPos(v T) int {
	return sort.Search(len(oi.view), func(i int) bool {
		return !oi.less(oi.view[i], v, oi.reverseVal)
	})
}

func (oi *OrderedIndex[T, K]) applyAdd(v T) error {
	pos := oi.insertPos(v)
	prevView := oi.view
	newView := make([]T, 0, len(prevView)+1)
	newView = append(newView, prevView[:pos]...)
	newView = append(newView, v)
	newView = append(newView, prevView[pos:]...)
	oi.view = newView
	return oi.pushEdit(Edit{Start: pos, End: pos, NewLength: 1}, prevView)
}

func (oi *OrderedIndex[T, K]) applyRemove(v T) error {
	pos := -1
	for i, existing := range oi.view {
		if existing == v {
			pos = i
			break
		}
	}
	if pos == -1 {
		return nil
	}
	prevView := oi.view
	newView := make([]T, 0, len(prevView)-1)
	newView = append(newView, prevView[:pos]...)
	newView = append(newView, prevView[pos+1:]...)
	oi.view = newView
	return oi.pushEdit(Edit{Start: pos, End: pos + 1, NewLength: 0}, prevView)
}

func (oi *OrderedIndex[T, K]) fullReverse(rv bool) error {
	prevView, prevReverse := oi.view, oi.reverseVal
	reversed := make([]T, len(oi.view))
	for i, v := range oi.view {
		reversed[len(oi.view)-1-i] = v
	}
	oi.view = reversed
	oi.reverseVal = rv
	if err := oi.ctrl.OnUndo(func() { oi.view, oi.reverseVal = prevView, prevReverse }); err != nil {
		return err
	}
	return oi.pushEditNoViewUndo(Edit{Start: 0, End: len(prevView), NewLength: len(reversed)})
}

func (oi *OrderedIndex[T, K]) pushEdit(edit Edit, prevView []T) error {
	if err := oi.ctrl.OnUndo(func() { oi.view = prevView }); err != nil {
		return err
	}
	return oi.pushEditNoViewUndo(edit)
}

func (oi *OrderedIndex[T, K]) pushEditNoViewUndo(edit Edit) error {
	prevEdits := oi.edits
	oi.edits = append(append([]Edit{}, oi.edits...), edit)
	if err := oi.ctrl.OnUndo(func() { oi.edits = prevEdits }); err != nil {
		return err
	}
	if !oi.editsReset {
		oi.editsReset = true
		if err := oi.ctrl.OnCommit(func() error {
			oi.edits = nil
			oi.editsReset = false
			return nil
		}); err != nil {
			return err
		}
	}
	return oi.ctrl.Changed(oi)
}

// Dispose unlinks the index from source and reverse and cancels any
// pending schedule entry.
func (oi *OrderedIndex[T, K]) Dispose() {
	graph.Dispose(oi)
	oi.ctrl.Cancel(oi)
}

// View returns the current sorted view, tracking a dependency.
func (oi *OrderedIndex[T, K]) View() ([]T, error) {
	if err := oi.ctrl.Used(oi); err != nil {
		return nil, err
	}
	return oi.view, nil
}

// Changes returns the edits produced this pass, tracking a dependency.
// Empty once the enclosing scope has committed.
func (oi *OrderedIndex[T, K]) Changes() ([]Edit, error) {
	if err := oi.ctrl.Used(oi); err != nil {
		return nil, err
	}
	return oi.edits, nil
}
