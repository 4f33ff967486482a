package main

import (
	"fmt"

	"github.com/reflux-run/reflux/cell"
	"github.com/reflux-run/reflux/engine"
)

// traceRow is one atomic pass of the scripted transaction below: the write
// that triggered it and the settled cell values once the pass quiesced.
type traceRow struct {
	Pass       int
	Write      string
	Celsius    float64
	Fahrenheit float64
}

// traceTemperatureConverter runs the mutually-recursive Celsius/Fahrenheit
// Maintain pair through a fixed sequence of writes, recording the settled
// values after each pass — the canonical cyclic-cell scenario, settled by
// the engine's layer promotion of rescheduled readers.
func traceTemperatureConverter() ([]traceRow, error) {
	ctrl := engine.New()

	var c, f *cell.Maintain[float64]
	var err error
	c, err = cell.NewMaintain(ctrl, func(prev float64) float64 {
		fv, _ := f.Read()
		return (fv - 32) * 5 / 9
	}, cell.WithInitially(0.0))
	if err != nil {
		return nil, err
	}
	f, err = cell.NewMaintain(ctrl, func(prev float64) float64 {
		cv, _ := c.Read()
		return cv*9/5 + 32
	}, cell.WithInitially(32.0))
	if err != nil {
		return nil, err
	}
	if err := ctrl.Atomically(func() error {
		if err := ctrl.Initialize(c); err != nil {
			return err
		}
		return ctrl.Initialize(f)
	}); err != nil {
		return nil, err
	}

	var rows []traceRow
	record := func(write string) error {
		cv, err := c.Read()
		if err != nil {
			return err
		}
		fv, err := f.Read()
		if err != nil {
			return err
		}
		rows = append(rows, traceRow{Pass: len(rows) + 1, Write: write, Celsius: cv, Fahrenheit: fv})
		return nil
	}

	writes := []struct {
		label string
		fn    func() error
	}{
		{"c.Write(100)", func() error { return c.Write(100) }},
		{"f.Write(32)", func() error { return f.Write(32) }},
		{"c.Write(-40)", func() error { return c.Write(-40) }},
	}

	for _, w := range writes {
		if err := ctrl.Atomically(w.fn); err != nil {
			return nil, fmt.Errorf("pass %q: %w", w.label, err)
		}
		if err := ctrl.Atomically(func() error { return record(w.label) }); err != nil {
			return nil, err
		}
	}

	return rows, nil
}
