package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/reflux-run/reflux/graph"
)

// ErrReadOnlyViolation is returned when a listener attempts to mutate a
// subject during the observer read-only phase.
var ErrReadOnlyViolation = errors.New("engine: mutation attempted during read-only phase")

// ErrCircularity means two or more listeners mutually invalidate each
// other's reads within the same recalc pass: no fixed point of layer
// promotion exists.
type ErrCircularity struct {
	Listeners []graph.Listener
}

func (e *ErrCircularity) Error() string {
	names := make([]string, len(e.Listeners))
	for i, l := range e.Listeners {
		names[i] = fmt.Sprintf("%v", l)
	}
	return fmt.Sprintf("engine: circular dependency among listeners: %s", strings.Join(names, ", "))
}
