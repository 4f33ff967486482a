// Package engine implements the Controller: the dependency-tracking,
// layered-recalculation scheduler that sits on top of history.History and
// the graph package's Subject/Listener/Link primitives.
package engine

import (
	"math"

	"github.com/reflux-run/reflux/graph"
	"github.com/reflux-run/reflux/history"
	"github.com/reflux-run/reflux/internal/diag"
)

// ObserverLayer is the fixed layer assigned to Observer cells (§4.D): they
// run only in the read-only phase, after every ordinary listener has
// settled.
const ObserverLayer = math.MaxInt

// maxPromotionSteps bounds the number of inversion-driven layer promotions
// within one atomic scope. A true cycle (scenario 4: mutually-invalidating
// listeners) is caught immediately via the promotion-edge check in
// handleInversion; this bound is a backstop for longer cycles that would
// otherwise only manifest as runaway promotion.
const maxPromotionSteps = 10_000

type listenerPair struct {
	promoted, over graph.Listener
}

// Controller is the reactive engine: a history.History extended with
// dependency tracking and a layered recalc schedule. One Controller
// belongs to exactly one goroutine for its entire lifetime.
type Controller struct {
	*history.History

	current  graph.Listener
	readonly bool

	queue    *layerQueue
	observer *observerQueue

	thisPass           []graph.Listener
	thisPassSavepoints []history.Savepoint
	thisPassIndex      map[graph.Listener]int

	writtenThisPass map[graph.Subject]int // subject -> writer's layer at time of write

	promotedAbove  map[listenerPair]bool
	promotionSteps int
}

// New creates an idle Controller.
func New() *Controller {
	return &Controller{
		History:         history.New(),
		queue:           newLayerQueue(),
		observer:        newObserverQueue(),
		thisPassIndex:   make(map[graph.Listener]int),
		writtenThisPass: make(map[graph.Subject]int),
		promotedAbove:   make(map[listenerPair]bool),
	}
}

// CurrentListener returns the listener currently running, or nil.
func (c *Controller) CurrentListener() graph.Listener { return c.current }

// Readonly reports whether the controller is in the observer read-only
// phase of the current atomic scope.
func (c *Controller) Readonly() bool { return c.readonly }

// Atomically runs fn, then drains the recalc schedule to quiescence, then
// runs observers in a read-only phase — all before the embedded History's
// own commit-drain and manager-exit cleanup. Any error at any stage aborts
// the whole scope via History's rollback.
func (c *Controller) Atomically(fn func() error) error {
	return c.History.Atomically(func() error {
		if err := fn(); err != nil {
			return err
		}
		return c.recalc()
	})
}

func (c *Controller) recalc() error {
	defer c.resetPass()

	for !c.queue.empty() {
		l := c.queue.popLowest()
		if err := c.runListener(l); err != nil {
			return err
		}
	}

	c.readonly = true
	defer func() { c.readonly = false }()

	for !c.observer.empty() {
		l := c.observer.pop()
		prev := c.current
		c.current = l
		err := l.Run()
		c.current = prev
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) resetPass() {
	c.thisPass = c.thisPass[:0]
	c.thisPassSavepoints = c.thisPassSavepoints[:0]
	c.thisPassIndex = make(map[graph.Listener]int)
	c.writtenThisPass = make(map[graph.Subject]int)
	c.promotedAbove = make(map[listenerPair]bool)
	c.promotionSteps = 0
}

// runListener executes l.Run(), recording a micro-savepoint first so a
// later order-inversion can partially rewind the scope back to just
// before l started.
func (c *Controller) runListener(l graph.Listener) error {
	sp, err := c.Savepoint()
	if err != nil {
		return err
	}

	graph.ClearSubjects(l)

	prev := c.current
	c.current = l
	idx := len(c.thisPass)
	c.thisPass = append(c.thisPass, l)
	c.thisPassSavepoints = append(c.thisPassSavepoints, sp)
	c.thisPassIndex[l] = idx

	err = l.Run()
	c.current = prev

	return err
}

// Initialize runs listener as if it had already run in a previous pass: it
// becomes part of this_pass so that a subsequent Changed on a subject it
// reads correctly detects an order inversion. Used by lazy cells on first
// read, outside the normal pop-from-queue flow.
func (c *Controller) Initialize(listener graph.Listener) error {
	if !c.Active() {
		return history.ErrInactive
	}
	c.queue.cancel(listener)
	c.observer.cancel(listener)
	return c.runListener(listener)
}

// Lock registers subject's manager with the enclosing scope, if it has
// one not already registered.
func (c *Controller) Lock(subject graph.Subject) error {
	if !c.Active() {
		return history.ErrInactive
	}
	if mgr := subject.Manager(); mgr != nil {
		return c.Manage(mgr)
	}
	return nil
}

// Used records that the current listener (if any) reads subject: it locks
// subject's manager, ensures a Link exists, and promotes the listener's
// layer strictly above subject's layer and above the layer of whichever
// listener last wrote subject this pass. During the read-only phase reads
// are not recorded as dependencies — observers are side-effectful sinks.
func (c *Controller) Used(subject graph.Subject) error {
	if err := c.Lock(subject); err != nil {
		return err
	}
	if c.current == nil || c.readonly {
		return nil
	}

	l := c.current
	if graph.FindLink(subject, l) == nil {
		graph.NewLink(subject, l)
	}

	if l.Layer() <= subject.Layer() {
		l.SetLayer(subject.Layer() + 1)
	}
	if writerLayer, ok := c.writtenThisPass[subject]; ok && l.Layer() <= writerLayer {
		l.SetLayer(writerLayer + 1)
	}
	return nil
}

// Changed records that subject was written during the current pass. It
// pushes an undo entry that clears the bookkeeping, then either schedules
// every dirty reader of subject or, for a reader that has already run
// this pass, triggers order-inversion recovery.
func (c *Controller) Changed(subject graph.Subject) error {
	if err := c.Lock(subject); err != nil {
		return err
	}
	if c.readonly {
		return ErrReadOnlyViolation
	}

	writerLayer := 0
	if c.current != nil {
		writerLayer = c.current.Layer()
	}
	c.writtenThisPass[subject] = writerLayer
	if err := c.OnUndo(func() { delete(c.writtenThisPass, subject) }); err != nil {
		return err
	}

	if c.current == nil {
		// External write: simply schedule readers.
		graph.IterSubjectListeners(subject, func(l graph.Listener) bool {
			if l.Dirty() {
				c.schedule(l, &writerLayer)
			}
			return true
		})
		return nil
	}

	minIdx := -1
	var invalidated graph.Listener
	graph.IterSubjectListeners(subject, func(l graph.Listener) bool {
		if l == c.current {
			return true
		}
		if idx, ok := c.thisPassIndex[l]; ok {
			if minIdx == -1 || idx < minIdx {
				minIdx = idx
				invalidated = l
			}
			return true
		}
		if l.Dirty() {
			c.schedule(l, &writerLayer)
		}
		return true
	})

	if minIdx == -1 {
		return nil
	}
	return c.handleInversion(minIdx, invalidated, c.current)
}

// handleInversion promotes R (the listener found to have read subject
// before W, the currently-running writer, wrote it) above W, then
// partially rewinds the scope to R's pre-run savepoint and reinserts R and
// every listener that ran after it back into the schedule.
func (c *Controller) handleInversion(minIdx int, r, w graph.Listener) error {
	pair := listenerPair{promoted: r, over: w}
	reverse := listenerPair{promoted: w, over: r}
	if c.promotedAbove[reverse] {
		return &ErrCircularity{Listeners: []graph.Listener{r, w}}
	}
	c.promotedAbove[pair] = true

	c.promotionSteps++
	if c.promotionSteps > maxPromotionSteps {
		rewound := append([]graph.Listener{}, c.thisPass[minIdx:]...)
		return &ErrCircularity{Listeners: rewound}
	}

	if r.Layer() <= w.Layer() {
		r.SetLayer(w.Layer() + 1)
	}
	diag.Logf("engine: order inversion, promoting listener above %v to layer %d", w, r.Layer())

	sp := c.thisPassSavepoints[minIdx]
	if err := c.RollbackTo(sp); err != nil {
		return err
	}

	rewound := append([]graph.Listener{}, c.thisPass[minIdx:]...)
	c.thisPass = c.thisPass[:minIdx]
	c.thisPassSavepoints = c.thisPassSavepoints[:minIdx]
	for _, l := range rewound {
		delete(c.thisPassIndex, l)
		c.enqueue(l)
	}
	return nil
}

// schedule inserts listener into the layered queue, optionally bumping its
// layer strictly past sourceLayer first, then propagating that promotion
// to any already-queued reader of listener's own subject identity (true
// for the common case of a cell that is both Subject and Listener, e.g.
// Maintain/Discrete) whose layer no longer exceeds it.
func (c *Controller) schedule(listener graph.Listener, sourceLayer *int) {
	if sourceLayer != nil && *sourceLayer >= listener.Layer() {
		listener.SetLayer(*sourceLayer + 1)
		c.propagatePromotion(listener)
	}
	c.enqueue(listener)
}

// Schedule is the external-facing form of schedule (§6).
func (c *Controller) Schedule(listener graph.Listener, sourceLayer *int) {
	c.schedule(listener, sourceLayer)
}

func (c *Controller) propagatePromotion(listener graph.Listener) {
	subj, ok := listener.(graph.Subject)
	if !ok {
		return
	}
	graph.IterSubjectListeners(subj, func(l graph.Listener) bool {
		if l == listener {
			return true
		}
		if !c.queue.contains(l) {
			return true
		}
		if l.Layer() > listener.Layer() {
			return true
		}
		c.promotionSteps++
		if c.promotionSteps > maxPromotionSteps {
			return false
		}
		l.SetLayer(listener.Layer() + 1)
		c.propagatePromotion(l)
		return true
	})
}

func (c *Controller) enqueue(listener graph.Listener) {
	if listener.Layer() == ObserverLayer {
		c.observer.push(listener)
	} else {
		c.queue.push(listener)
	}
}

// Cancel removes listener from whichever schedule queue it is in, if any.
func (c *Controller) Cancel(listener graph.Listener) {
	c.queue.cancel(listener)
	c.observer.cancel(listener)
}
