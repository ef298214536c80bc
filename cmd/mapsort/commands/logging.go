package commands

import (
	"io"
	"log"

	"github.com/banshee-data/mapsort/internal/tracking"
)

// ConfigureLogging routes the tracker's log streams to w. The ops stream
// is always on; verbosity 1 adds diagnostics and 2 adds per-frame trace.
func ConfigureLogging(w io.Writer, verbosity int) {
	streams := tracking.LogWriters{Ops: w}
	if verbosity >= 1 {
		streams.Diag = w
	}
	if verbosity >= 2 {
		streams.Trace = w
	}
	tracking.SetLogWriters(streams)

	log.SetOutput(w)
	log.SetFlags(log.LstdFlags)
}
