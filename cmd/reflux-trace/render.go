package main

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/reflux-run/reflux/cmd/reflux-trace/templates"
)

func renderTable(rows []traceRow) {
	tbl := tablewriter.NewWriter(os.Stdout)
	tbl.SetHeader([]string{"pass", "write", "celsius", "fahrenheit"})
	for _, r := range rows {
		tbl.Append([]string{
			fmt.Sprintf("%d", r.Pass),
			r.Write,
			fmt.Sprintf("%.2f", r.Celsius),
			fmt.Sprintf("%.2f", r.Fahrenheit),
		})
	}
	tbl.Render()
}

func writeHTMLTrace(path string, rows []traceRow) error {
	out := make([]templates.Row, len(rows))
	for i, r := range rows {
		out[i] = templates.Row{
			Pass:       r.Pass,
			Write:      r.Write,
			Celsius:    fmt.Sprintf("%.2f", r.Celsius),
			Fahrenheit: fmt.Sprintf("%.2f", r.Fahrenheit),
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	templates.WriteTraceReport(f, out)
	return nil
}
