package collection_test

import (
	"testing"

	"github.com/reflux-run/reflux/cell"
	"github.com/reflux-run/reflux/collection"
	"github.com/reflux-run/reflux/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubsetDropsNonMembersAndFollowsBaseRemovals(t *testing.T) {
	ctrl := engine.New()
	base := collection.NewSet(ctrl, 1, 2, 3)
	sub, err := collection.NewSubset(ctrl, base)
	require.NoError(t, err)

	err = ctrl.Atomically(func() error {
		if err := sub.Add(2); err != nil {
			return err
		}
		return sub.Add(9) // not a member of base: silently dropped
	})
	require.NoError(t, err)
	assert.True(t, sub.Contains(2))
	assert.False(t, sub.Contains(9))

	err = ctrl.Atomically(func() error { return base.Remove(2) })
	require.NoError(t, err)
	assert.False(t, sub.Contains(2), "removal from base must propagate to the subset")
}

func TestObservingReportsAdditionsAndValueChangesNotPureRemovals(t *testing.T) {
	ctrl := engine.New()
	keys := collection.NewSet(ctrl, "a", "b")
	values := map[string]int{"a": 1, "b": 2}
	lookup := func(k string) (int, error) { return values[k], nil }

	obs, err := collection.NewObserving(ctrl, keys, lookup)
	require.NoError(t, err)

	var changes map[string]collection.Change[int]
	observer, err := cell.NewObserver(ctrl, func() error {
		c, err := obs.Changes()
		if err != nil {
			return err
		}
		if len(c) > 0 {
			changes = c
		}
		return nil
	})
	require.NoError(t, err)
	defer observer.Dispose()

	err = ctrl.Atomically(func() error {
		values["a"] = 10 // value change
		if err := keys.Remove("b"); err != nil {
			return err
		}
		return keys.Add("c") // addition
	})
	require.NoError(t, err)

	require.Contains(t, changes, "a")
	assert.Equal(t, 10, changes["a"].New)
	assert.Equal(t, 1, changes["a"].Old)

	require.Contains(t, changes, "c")
	assert.Equal(t, 0, changes["c"].New)
	assert.Equal(t, 0, changes["c"].Old)

	assert.NotContains(t, changes, "b", "a pure key removal must not be reported")
}

// Scenario 5: sorted index over {1,2,3}. Atomic add(0); add(4) produces two
// edits, most-recently-recorded op first; flipping reverse produces one
// full-view edit.
func TestOrderedIndexScenario(t *testing.T) {
	ctrl := engine.New()
	base := collection.NewSet(ctrl, 1, 2, 3)
	reverse := cell.NewValue(ctrl, false)
	identity := func(v int) int { return v }

	oi, err := collection.NewOrderedIndex[int, int](ctrl, base, reverse, identity)
	require.NoError(t, err)

	view, err := func() ([]int, error) {
		var v []int
		err := ctrl.Atomically(func() error {
			var err error
			v, err = oi.View()
			return err
		})
		return v, err
	}()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, view)

	// Changes only exist once oi's rule has actually re-run, which happens
	// during recalc — after the writing scope's own fn body returns. An
	// Observer, scheduled for the read-only phase of the same scope, is
	// what actually observes the transient edits.
	var captured []collection.Edit
	observer, err := cell.NewObserver(ctrl, func() error {
		c, err := oi.Changes()
		if err != nil {
			return err
		}
		if len(c) > 0 {
			captured = c
		}
		return nil
	})
	require.NoError(t, err)
	defer observer.Dispose()

	err = ctrl.Atomically(func() error {
		if err := base.Add(0); err != nil {
			return err
		}
		return base.Add(4)
	})
	require.NoError(t, err)
	assert.Equal(t, []collection.Edit{{Start: 3, End: 3, NewLength: 1}, {Start: 0, End: 0, NewLength: 1}}, captured)

	err = ctrl.Atomically(func() error {
		v, err := oi.View()
		view = v
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, view)

	err = ctrl.Atomically(func() error {
		c, err := oi.Changes()
		captured = c
		return err
	})
	require.NoError(t, err)
	assert.Empty(t, captured, "changes must be empty once the writing pass has committed")

	err = ctrl.Atomically(func() error { return reverse.Write(true) })
	require.NoError(t, err)

	err = ctrl.Atomically(func() error {
		v, err := oi.View()
		view = v
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []int{4, 3, 2, 1, 0}, view)
}

// Scenario 6: two patterns, three published messages in one pass.
func TestHubDeliversPerPatternInPublicationOrder(t *testing.T) {
	ctrl := engine.New()
	hub := collection.NewHub(ctrl)

	var subA, subB *collection.Subscription
	err := ctrl.Atomically(func() error {
		var err error
		subA, err = hub.Get(nil, nil, 3)
		if err != nil {
			return err
		}
		subB, err = hub.Get(2, 4, nil)
		return err
	})
	require.NoError(t, err)

	// Matches are reset when the publishing scope commits, so an Observer,
	// run in that scope's read-only phase, captures them.
	var matchedA, matchedB [][]any
	observer, err := cell.NewObserver(ctrl, func() error {
		a, err := subA.Matched()
		if err != nil {
			return err
		}
		b, err := subB.Matched()
		if err != nil {
			return err
		}
		if len(a) > 0 || len(b) > 0 {
			matchedA, matchedB = a, b
		}
		return nil
	})
	require.NoError(t, err)
	defer observer.Dispose()

	err = ctrl.Atomically(func() error {
		if err := hub.Put(1, 2, 3); err != nil {
			return err
		}
		if err := hub.Put(2, 4, 4); err != nil {
			return err
		}
		return hub.Put(2, 4, 3)
	})
	require.NoError(t, err)

	assert.Equal(t, [][]any{{1, 2, 3}, {2, 4, 3}}, matchedA)
	assert.Equal(t, [][]any{{2, 4, 4}, {2, 4, 3}}, matchedB)
}

func TestHubRejectsNonHashableValues(t *testing.T) {
	ctrl := engine.New()
	hub := collection.NewHub(ctrl)

	err := ctrl.Atomically(func() error { return hub.Put(1, []int{2, 3}) })
	assert.ErrorIs(t, err, collection.ErrNonHashable)
}
