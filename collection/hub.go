package collection

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/reflux-run/reflux/engine"
	"github.com/reflux-run/reflux/graph"
	"github.com/reflux-run/reflux/history"
)

// Subscription is a registered Hub pattern. A nil element is a wildcard.
// Matched returns the messages published this pass that matched it.
type Subscription struct {
	hub     *Hub
	pattern []any
	matched []any // each element is a []any message
}

// Matched returns the messages matched this pass, in publication order,
// tracking a dependency on the hub.
func (s *Subscription) Matched() ([][]any, error) {
	if err := s.hub.ctrl.Used(s.hub); err != nil {
		return nil, err
	}
	out := make([][]any, len(s.matched))
	for i, m := range s.matched {
		out[i] = m.([]any)
	}
	return out, nil
}

type indexKey struct {
	length, rightmost int
	hash              uint64
}

// Hub is a pub/sub pattern index. Patterns are indexed by their rightmost
// non-wildcard position and the hash of the value there, so Put only has
// to probe as many buckets as the message has positions, not scan every
// registered pattern.
type Hub struct {
	graph.SubjectNode
	ctrl         *engine.Controller
	index        map[indexKey][]*Subscription
	wildcardOnly map[int][]*Subscription // patterns with no non-wildcard position, by length
	pendingReset bool
}

// NewHub creates an empty Hub.
func NewHub(ctrl *engine.Controller) *Hub {
	h := &Hub{
		ctrl:         ctrl,
		index:        make(map[indexKey][]*Subscription),
		wildcardOnly: make(map[int][]*Subscription),
	}
	h.SubjectNode = graph.NewSubjectNode(0, nil)
	return h
}

// Get registers pattern and returns a handle for reading this pass's
// matches. A nil element matches any value at that position.
func (h *Hub) Get(pattern ...any) (*Subscription, error) {
	for _, v := range pattern {
		if v != nil {
			if !hashable(v) {
				return nil, ErrNonHashable
			}
		}
	}
	sub := &Subscription{hub: h, pattern: pattern}
	rightmost := -1
	for i := len(pattern) - 1; i >= 0; i-- {
		if pattern[i] != nil {
			rightmost = i
			break
		}
	}
	if rightmost == -1 {
		h.wildcardOnly[len(pattern)] = append(h.wildcardOnly[len(pattern)], sub)
		return sub, nil
	}
	key := indexKey{length: len(pattern), rightmost: rightmost, hash: hashOf(pattern[rightmost])}
	h.index[key] = append(h.index[key], sub)
	return sub, nil
}

// Put publishes one message, atomically. It fails immediately, without
// side effects, if the controller is inactive or any value is not
// hashable.
func (h *Hub) Put(values ...any) error {
	if !h.ctrl.Active() {
		return history.ErrInactive
	}
	for _, v := range values {
		if !hashable(v) {
			return ErrNonHashable
		}
	}

	for _, sub := range h.wildcardOnly[len(values)] {
		if err := h.deliver(sub, values); err != nil {
			return err
		}
	}
	for i := len(values) - 1; i >= 0; i-- {
		key := indexKey{length: len(values), rightmost: i, hash: hashOf(values[i])}
		for _, sub := range h.index[key] {
			if matches(sub.pattern, values) {
				if err := h.deliver(sub, values); err != nil {
					return err
				}
			}
		}
	}
	return h.registerReset()
}

func (h *Hub) deliver(sub *Subscription, values []any) error {
	sub.matched = append(sub.matched, append([]any{}, values...))
	return h.ctrl.OnUndo(func() { sub.matched = sub.matched[:len(sub.matched)-1] })
}

func (h *Hub) registerReset() error {
	if h.pendingReset {
		return h.ctrl.Changed(h)
	}
	h.pendingReset = true
	if err := h.ctrl.OnCommit(func() error {
		h.resetAll()
		h.pendingReset = false
		return nil
	}); err != nil {
		return err
	}
	return h.ctrl.Changed(h)
}

func (h *Hub) resetAll() {
	for _, subs := range h.index {
		for _, s := range subs {
			s.matched = nil
		}
	}
	for _, subs := range h.wildcardOnly {
		for _, s := range subs {
			s.matched = nil
		}
	}
}

func matches(pattern, values []any) bool {
	if len(pattern) != len(values) {
		return false
	}
	for i, p := range pattern {
		if p != nil && p != values[i] {
			return false
		}
	}
	return true
}

func hashable(v any) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	m := map[any]struct{}{}
	m[v] = struct{}{}
	return true
}

func hashOf(v any) uint64 {
	return xxhash.Sum64String(fmt.Sprint(v))
}
