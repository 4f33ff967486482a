// Package graph implements the bipartite dependency graph between Subjects
// (observable state) and Listeners (computations that read and write
// state): the Link primitive and the chains it is spliced into.
package graph

import "github.com/reflux-run/reflux/history"

// Subject is anything whose reads and writes the engine tracks.
type Subject interface {
	// Layer is the subject's fixed topological level, usually 0 for
	// externally-written state.
	Layer() int
	// Manager returns the subject's scoped-resource handle, or nil.
	Manager() history.Manager

	subjectHeadLink() *Link
	setSubjectHeadLink(*Link)
}

// Listener is anything whose execution the engine schedules.
type Listener interface {
	// Layer is the listener's current topological level, monotonically
	// non-decreasing within a transaction.
	Layer() int
	SetLayer(int)
	// Run executes the listener's rule. Reads and writes during Run are
	// reported back to the engine via Used/Changed.
	Run() error
	// Dirty reports whether the listener should actually re-run now that
	// one of its sources has changed. Most listeners always return true;
	// it exists so a listener can suppress a spurious recompute.
	Dirty() bool

	headLink() *Link
	setHeadLink(*Link)
}

// Link is an undirected pairing of one Subject and one Listener. It is
// spliced into two doubly-linked chains — one rooted at the subject, one
// rooted at the listener — and removed from both when either endpoint
// unlinks it.
type Link struct {
	Subject  Subject
	Listener Listener

	prevInSubject, nextInSubject   *Link
	prevInListener, nextInListener *Link

	unlinked bool
}

// NewLink constructs a Link between subject and listener and splices it
// into the head of both chains.
func NewLink(subject Subject, listener Listener) *Link {
	l := &Link{Subject: subject, Listener: listener}

	if head := subject.subjectHeadLink(); head != nil {
		head.prevInSubject = l
		l.nextInSubject = head
	}
	subject.setSubjectHeadLink(l)

	if head := listener.headLink(); head != nil {
		head.prevInListener = l
		l.nextInListener = head
	}
	listener.setHeadLink(l)

	return l
}

// Unlink removes l from both of its chains in O(1). Calling Unlink more
// than once is a no-op.
func (l *Link) Unlink() {
	if l.unlinked {
		return
	}
	l.unlinked = true

	if l.prevInSubject != nil {
		l.prevInSubject.nextInSubject = l.nextInSubject
	} else {
		l.Subject.setSubjectHeadLink(l.nextInSubject)
	}
	if l.nextInSubject != nil {
		l.nextInSubject.prevInSubject = l.prevInSubject
	}

	if l.prevInListener != nil {
		l.prevInListener.nextInListener = l.nextInListener
	} else {
		l.Listener.setHeadLink(l.nextInListener)
	}
	if l.nextInListener != nil {
		l.nextInListener.prevInListener = l.prevInListener
	}

	l.prevInSubject, l.nextInSubject = nil, nil
	l.prevInListener, l.nextInListener = nil, nil
}

// IterSubjectListeners walks the listeners linked to subject, in
// most-recently-linked-first order. It tolerates the callback unlinking
// the link currently being visited.
func IterSubjectListeners(subject Subject, fn func(Listener) bool) {
	for l := subject.subjectHeadLink(); l != nil; {
		next := l.nextInSubject
		if !fn(l.Listener) {
			return
		}
		l = next
	}
}

// IterListenerSubjects walks the subjects linked to listener, in
// most-recently-linked-first order. It tolerates the callback unlinking
// the link currently being visited — the common pattern when a listener
// rebuilds its subject set across a re-run.
func IterListenerSubjects(listener Listener, fn func(Subject) bool) {
	for l := listener.headLink(); l != nil; {
		next := l.nextInListener
		if !fn(l.Subject) {
			return
		}
		l = next
	}
}

// FindLink returns the existing Link between subject and listener, or nil
// if none exists. Per the at-most-once invariant, there is never more than
// one; the listener's own chain is scanned since a listener's read-set
// within one run is typically small.
func FindLink(subject Subject, listener Listener) *Link {
	for l := listener.headLink(); l != nil; l = l.nextInListener {
		if l.Subject == subject {
			return l
		}
	}
	return nil
}

// SubjectNode is an embeddable implementation of the Subject chain-head
// bookkeeping. Cell kinds embed it to satisfy Subject.
type SubjectNode struct {
	layer int
	mgr   history.Manager
	head  *Link
}

// NewSubjectNode creates a SubjectNode at the given fixed layer, with an
// optional manager.
func NewSubjectNode(layer int, mgr history.Manager) SubjectNode {
	return SubjectNode{layer: layer, mgr: mgr}
}

func (n *SubjectNode) Layer() int                       { return n.layer }
func (n *SubjectNode) Manager() history.Manager         { return n.mgr }
func (n *SubjectNode) subjectHeadLink() *Link           { return n.head }
func (n *SubjectNode) setSubjectHeadLink(l *Link)       { n.head = l }

// ListenerNode is an embeddable implementation of the Listener chain-head
// and layer bookkeeping. Cell kinds embed it and supply their own Run and
// Dirty.
type ListenerNode struct {
	layer int
	head  *Link
}

func (n *ListenerNode) Layer() int         { return n.layer }
func (n *ListenerNode) SetLayer(l int)     { n.layer = l }
func (n *ListenerNode) headLink() *Link    { return n.head }
func (n *ListenerNode) setHeadLink(l *Link) { n.head = l }

// ClearSubjects unlinks every Link currently rooted at listener, returning
// the count removed. Called at the start of a re-run so fresh reads
// re-establish only the dependencies actually used this time.
func ClearSubjects(listener Listener) int {
	n := 0
	for l := listener.headLink(); l != nil; {
		next := l.nextInListener
		l.Unlink()
		n++
		l = next
	}
	return n
}

// Dispose unlinks every Link rooted at listener, implementing the weak
// subject→listener reference contract: once a listener is disposed, no
// subject's IterSubjectListeners will yield it again. Cell owners must
// call Dispose explicitly, since Go provides no deterministic finalizer
// hook equivalent to a GC-driven weak reference.
func Dispose(listener Listener) {
	ClearSubjects(listener)
}
