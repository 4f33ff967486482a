// Package diag gives the engine a single, terse logging seam. It wraps the
// standard log package the way the teacher's cmd binaries use log directly
// — no third-party logging library appears anywhere in the example corpus,
// so none is introduced here (see DESIGN.md).
package diag

import "log"

// Enabled controls whether Logf writes anything. Setting it to false
// silences the order-inversion log line.
var Enabled = true

// Logf writes a diagnostic line through the standard logger when Enabled.
func Logf(format string, args ...any) {
	if !Enabled {
		return
	}
	log.Printf(format, args...)
}
