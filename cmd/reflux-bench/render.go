package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
)

// renderTable prints one comparison table per configuration kind, in the
// same shape as the teacher's own benchmark tables (title, header row,
// avg/min/p75/p99/max columns).
func renderTable(kind configKind, results []benchResult, iters int) {
	tbl := table.NewWriter()
	tbl.SetTitle(fmt.Sprintf("reflux-bench: %s", kind))
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"shape", "avg", "min", "p75", "p99", "max"})

	for _, r := range results {
		tbl.AppendRow(table.Row{
			fmt.Sprintf("%d x %d", r.Width, r.Height),
			r.Calc.Time.Avg,
			r.Calc.Time.Min,
			r.Calc.Time.P75,
			r.Calc.Time.P99,
			r.Calc.Time.Max,
		})
	}
	tbl.Render()

	fmt.Printf("%s passes per shape: %s\n\n", kind, humanize.Comma(int64(iters)))
}
