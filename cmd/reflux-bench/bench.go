package main

import (
	"time"

	"github.com/jamiealquiza/tachymeter"
	"github.com/reflux-run/reflux/cell"
	"github.com/reflux-run/reflux/engine"
)

// configKind selects which cell type builds each chain: a lazy Compute,
// recomputed only on the next Read, or an eager Maintain, recomputed
// immediately whenever the engine schedules it.
type configKind int

const (
	configLazy configKind = iota
	configEager
)

func (k configKind) String() string {
	if k == configLazy {
		return "lazy (Compute)"
	}
	return "eager (Maintain)"
}

// benchResult is one (width, height) shape timed under one configuration.
type benchResult struct {
	Kind   configKind
	Width  int
	Height int
	Calc   *tachymeter.Metrics
}

// runBenchmark times src.Write across every (width, height) combination:
// width independent chains, each height cells deep, all rooted at one
// shared Value source — the same fan-out shape the teacher's own
// propagate benchmark uses.
func runBenchmark(kind configKind, widths, heights []int, iters int) ([]benchResult, error) {
	var results []benchResult
	for _, w := range widths {
		for _, h := range heights {
			calc, err := benchOne(kind, w, h, iters)
			if err != nil {
				return nil, err
			}
			results = append(results, benchResult{Kind: kind, Width: w, Height: h, Calc: calc})
		}
	}
	return results, nil
}

func benchOne(kind configKind, width, height, iters int) (*tachymeter.Metrics, error) {
	ctrl := engine.New()
	src := cell.NewValue(ctrl, 0)

	for i := 0; i < width; i++ {
		if err := buildChain(ctrl, kind, src, height); err != nil {
			return nil, err
		}
	}

	tach := tachymeter.New(&tachymeter.Config{Size: iters})
	for i := 0; i < iters; i++ {
		start := time.Now()
		if err := ctrl.Atomically(func() error { return src.Write(i + 1) }); err != nil {
			return nil, err
		}
		tach.AddTime(time.Since(start))
	}
	return tach.Calc(), nil
}

// buildChain wires one height-deep chain rooted at src, terminated by an
// Observer. In the eager configuration a write recomputes every Maintain
// in the chain and reruns the Observer inside the timed loop. In the lazy
// configuration a write only marks the chain's first Compute dirty: the
// dirtiness does not reach later cells or the Observer, so no
// recomputation happens inside the timed loop.
func buildChain(ctrl *engine.Controller, kind configKind, src *cell.Value[int], height int) error {
	read := func() (int, error) { return src.Read() }

	if kind == configLazy {
		last := read
		for j := 0; j < height; j++ {
			prev := last
			c := cell.NewCompute(ctrl, func() (int, error) {
				v, err := prev()
				if err != nil {
					return 0, err
				}
				return v + 1, nil
			})
			last = c.Read
		}
		_, err := cell.NewObserver(ctrl, func() error {
			_, err := last()
			return err
		})
		return err
	}

	last := read
	for j := 0; j < height; j++ {
		prev := last
		m, err := cell.NewMaintain(ctrl, func(oldValue int) int {
			v, _ := prev()
			return v + 1
		})
		if err != nil {
			return err
		}
		last = m.Read
	}
	_, err := cell.NewObserver(ctrl, func() error {
		_, err := last()
		return err
	})
	return err
}
