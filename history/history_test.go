package history_test

import (
	"errors"
	"testing"

	"github.com/reflux-run/reflux/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type traceManager struct {
	name  string
	trace *[]string
}

func (m *traceManager) Enter() {
	*m.trace = append(*m.trace, "enter "+m.name)
}

func (m *traceManager) Exit(err error) error {
	*m.trace = append(*m.trace, "exit "+m.name)
	return nil
}

func TestAtomicallyOutsideScopeOperationsFail(t *testing.T) {
	h := history.New()
	assert.ErrorIs(t, h.OnUndo(func() {}), history.ErrInactive)
	assert.ErrorIs(t, h.OnCommit(func() error { return nil }), history.ErrInactive)
	_, err := h.Savepoint()
	assert.ErrorIs(t, err, history.ErrInactive)
}

func TestNestedAtomicallyFlattensIntoOuterScope(t *testing.T) {
	h := history.New()
	depth := 0
	err := h.Atomically(func() error {
		depth++
		return h.Atomically(func() error {
			depth++
			assert.True(t, h.Active())
			return nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 2, depth)
}

// Scenario 2 of the end-to-end properties: manage(M), on_commit(f,1),
// savepoint, on_commit(f,2), rollback_to(sp), on_commit(f,3). Expected
// trace: enter M; commit f(1); commit f(3); exit M.
func TestCommitUndoOrdering(t *testing.T) {
	h := history.New()
	var trace []string
	m := &traceManager{name: "M", trace: &trace}

	err := h.Atomically(func() error {
		require.NoError(t, h.Manage(m))
		require.NoError(t, h.OnCommit(func() error {
			trace = append(trace, "commit f(1)")
			return nil
		}))
		sp, spErr := h.Savepoint()
		require.NoError(t, spErr)
		require.NoError(t, h.OnCommit(func() error {
			trace = append(trace, "commit f(2)")
			return nil
		}))
		require.NoError(t, h.RollbackTo(sp))
		require.NoError(t, h.OnCommit(func() error {
			trace = append(trace, "commit f(3)")
			return nil
		}))
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"enter M", "commit f(1)", "commit f(3)", "exit M"}, trace)
}

func TestRollbackReplaysUndoInLIFOOrder(t *testing.T) {
	h := history.New()
	var order []int

	err := h.Atomically(func() error {
		require.NoError(t, h.OnUndo(func() { order = append(order, 1) }))
		require.NoError(t, h.OnUndo(func() { order = append(order, 2) }))
		require.NoError(t, h.OnUndo(func() { order = append(order, 3) }))
		return errors.New("boom")
	})

	require.Error(t, err)
	assert.Equal(t, []int{3, 2, 1}, order)
}

// I2: after rollback, every registered manager has had exactly one exit
// call, even though the scope's own body failed.
func TestManagersAlwaysExitOnError(t *testing.T) {
	h := history.New()
	var trace []string
	m1 := &traceManager{name: "M1", trace: &trace}
	m2 := &traceManager{name: "M2", trace: &trace}

	err := h.Atomically(func() error {
		require.NoError(t, h.Manage(m1))
		require.NoError(t, h.Manage(m2))
		return errors.New("boom")
	})

	require.Error(t, err)
	assert.Equal(t, []string{"enter M1", "enter M2", "exit M2", "exit M1"}, trace)
}

type failingExitManager struct {
	name string
	err  error
}

func (m *failingExitManager) Enter()          {}
func (m *failingExitManager) Exit(error) error { return m.err }

func TestManagerExitFailureReplacesPropagatingError(t *testing.T) {
	h := history.New()
	originalErr := errors.New("original")
	exitErr := errors.New("exit blew up")

	err := h.Atomically(func() error {
		require.NoError(t, h.Manage(&failingExitManager{name: "M", err: exitErr}))
		return originalErr
	})

	require.Error(t, err)
	var mgrErr *history.ManagerExitError
	require.ErrorAs(t, err, &mgrErr)
	assert.Equal(t, exitErr, mgrErr.Cause)
}

func TestManageDeduplicatesByIdentity(t *testing.T) {
	h := history.New()
	var trace []string
	m := &traceManager{name: "M", trace: &trace}

	err := h.Atomically(func() error {
		require.NoError(t, h.Manage(m))
		require.NoError(t, h.Manage(m))
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"enter M", "exit M"}, trace)
}

func TestChangeAttrRestoresOnRollback(t *testing.T) {
	h := history.New()
	value := "old"
	get := func() any { return value }
	set := func(v any) { value = v.(string) }

	err := h.Atomically(func() error {
		require.NoError(t, h.ChangeAttr(get, set, "new"))
		assert.Equal(t, "new", value)
		return errors.New("boom")
	})

	require.Error(t, err)
	assert.Equal(t, "old", value)
}
