// Package collection implements the client-level reactive collections
// built on top of engine and cell: an ordered index over a set, a
// base-constrained subset, an observing map, and a pattern-matching pub/sub
// hub.
package collection

import "errors"

// ErrNonHashable is returned by Hub.Put or Hub.Get when a value cannot be
// used as a map key — Go's stand-in for "unhashable" is "not comparable",
// checked at the point of use since there is no static Hashable
// constraint expressive enough for arbitrary published values.
var ErrNonHashable = errors.New("collection: value is not hashable")
