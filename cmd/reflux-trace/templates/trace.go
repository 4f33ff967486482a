// Package templates renders a trace report as HTML using quicktemplate's
// streaming writer, kept in its own subpackage the same way the teacher
// keeps its codegen output under cmd/codegen/templates.
package templates

import (
	"io"

	qt "github.com/valyala/quicktemplate"
)

// Row is one rendered trace line.
type Row struct {
	Pass       int
	Write      string
	Celsius    string
	Fahrenheit string
}

// StreamTraceReport writes the HTML trace report to qw.
func StreamTraceReport(qw *qt.Writer, rows []Row) {
	qw.N().S(`<!doctype html><html><head><meta charset="utf-8"><title>reflux trace</title></head><body>`)
	qw.N().S(`<table border="1"><tr><th>pass</th><th>write</th><th>celsius</th><th>fahrenheit</th></tr>`)
	for _, r := range rows {
		qw.N().S(`<tr><td>`)
		qw.N().D(r.Pass)
		qw.N().S(`</td><td>`)
		qw.E().S(r.Write)
		qw.N().S(`</td><td>`)
		qw.E().S(r.Celsius)
		qw.N().S(`</td><td>`)
		qw.E().S(r.Fahrenheit)
		qw.N().S(`</td></tr>`)
	}
	qw.N().S(`</table></body></html>`)
}

// WriteTraceReport writes the HTML trace report to w.
func WriteTraceReport(w io.Writer, rows []Row) {
	qw := qt.AcquireWriter(w)
	StreamTraceReport(qw, rows)
	qt.ReleaseWriter(qw)
}

// TraceReport returns the HTML trace report as a string.
func TraceReport(rows []Row) string {
	qb := qt.AcquireByteBuffer()
	WriteTraceReport(qb, rows)
	s := string(qb.B)
	qt.ReleaseByteBuffer(qb)
	return s
}
