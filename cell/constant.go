package cell

import "github.com/reflux-run/reflux/graph"

// Constant is a fixed value. It is a Subject but never a Listener — its
// listener chain is always empty, since nothing ever writes it again.
type Constant[T any] struct {
	graph.SubjectNode
	value T
}

// NewConstant creates a Constant holding value for the lifetime of the
// program.
func NewConstant[T any](value T) *Constant[T] {
	c := &Constant[T]{value: value}
	c.SubjectNode = graph.NewSubjectNode(0, nil)
	return c
}

// Value returns the constant's fixed value. Reading a Constant never needs
// engine tracking — it can never produce a Changed event, so there is
// nothing for a listener to depend on besides the value itself.
func (c *Constant[T]) Value() T { return c.value }
