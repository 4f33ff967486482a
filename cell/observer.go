package cell

import (
	"github.com/reflux-run/reflux/engine"
	"github.com/reflux-run/reflux/graph"
)

// Observer is a pure sink: its layer is engine.ObserverLayer, so it runs
// only in the read-only phase, after every ordinary listener has settled.
// It is a Listener but never a Subject — nothing ever reads an Observer.
type Observer struct {
	graph.ListenerNode
	ctrl *engine.Controller
	fn   func() error
}

// NewObserver creates and runs fn once immediately, establishing its
// initial dependency links, then returns the Observer. Subsequent runs
// happen only when the engine schedules it after a dependency changes.
func NewObserver(ctrl *engine.Controller, fn func() error) (*Observer, error) {
	o := &Observer{ctrl: ctrl, fn: fn}
	o.SetLayer(engine.ObserverLayer)
	if err := ctrl.Atomically(func() error { return ctrl.Initialize(o) }); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *Observer) Dirty() bool { return true }
func (o *Observer) Run() error  { return o.fn() }

// Dispose unlinks the observer from every subject it reads and cancels
// any pending schedule entry. Go has no GC-driven weak reference, so
// callers that want to stop observing must call this explicitly.
func (o *Observer) Dispose() {
	graph.Dispose(o)
	o.ctrl.Cancel(o)
}
