package collection

import (
	"github.com/reflux-run/reflux/engine"
	"github.com/reflux-run/reflux/graph"
)

// Change is the (new, old) pair an Observing map reports for a key whose
// value or membership changed this pass.
type Change[V any] struct {
	New, Old V
}

// Observing maps a key Set through lookup, producing a discrete changes
// dict for every key whose value changed or that was newly added. Pure
// key removals update the cache silently and are not reported.
type Observing[K comparable, V comparable] struct {
	graph.SubjectNode
	graph.ListenerNode
	ctrl   *engine.Controller
	keys   *Set[K]
	lookup func(K) (V, error)

	values  map[K]V
	changes map[K]Change[V]
}

// NewObserving creates an Observing map and runs it once immediately.
func NewObserving[K comparable, V comparable](ctrl *engine.Controller, keys *Set[K], lookup func(K) (V, error)) (*Observing[K, V], error) {
	o := &Observing[K, V]{ctrl: ctrl, keys: keys, lookup: lookup, values: make(map[K]V)}
	o.SubjectNode = graph.NewSubjectNode(0, nil)
	if err := ctrl.Atomically(func() error { return ctrl.Initialize(o) }); err != nil {
		return nil, err
	}
	return o, nil
}

// Layer resolves the Subject/Listener embedding ambiguity to the
// listener's depth, matching the layer dependents should be scheduled
// above.
func (o *Observing[K, V]) Layer() int { return o.ListenerNode.Layer() }

func (o *Observing[K, V]) Dirty() bool { return true }

// Run re-evaluates lookup for every current key. Calling lookup from
// inside Run, with this listener current, transparently records whatever
// cells lookup itself reads as dependencies — a value-only change (no key
// added or removed) still reschedules this listener the next time one of
// those cells changes.
func (o *Observing[K, V]) Run() error {
	keys, err := o.keys.Members()
	if err != nil {
		return err
	}

	changed := make(map[K]Change[V])
	seen := make(map[K]struct{}, len(keys))
	for _, k := range keys {
		seen[k] = struct{}{}
		newVal, err := o.lookup(k)
		if err != nil {
			return err
		}
		oldVal, existed := o.values[k]
		switch {
		case !existed:
			changed[k] = Change[V]{New: newVal, Old: newVal}
		case oldVal != newVal:
			changed[k] = Change[V]{New: newVal, Old: oldVal}
		}
	}
	for k := range o.values {
		if _, ok := seen[k]; !ok {
			delete(o.values, k) // pure removal: update cache, don't report
		}
	}
	for k, c := range changed {
		o.values[k] = c.New
	}

	if len(changed) == 0 {
		return nil
	}
	return o.pushChanges(changed)
}

// Dispose unlinks the map from keys and cancels any pending schedule
// entry.
func (o *Observing[K, V]) Dispose() {
	graph.Dispose(o)
	o.ctrl.Cancel(o)
}

func (o *Observing[K, V]) pushChanges(changed map[K]Change[V]) error {
	prev := o.changes
	o.changes = changed
	if err := o.ctrl.OnUndo(func() { o.changes = prev }); err != nil {
		return err
	}
	if err := o.ctrl.OnCommit(func() error {
		o.changes = nil
		return nil
	}); err != nil {
		return err
	}
	return o.ctrl.Changed(o)
}

// Changes returns this pass's changes dict, tracking a dependency. Empty
// once the enclosing scope has committed.
func (o *Observing[K, V]) Changes() (map[K]Change[V], error) {
	if err := o.ctrl.Used(o); err != nil {
		return nil, err
	}
	return o.changes, nil
}
