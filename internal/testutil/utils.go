package testutil

import (
	"io"
	"log"
	"os"
	"testing"
)

// TestLogger returns a logger for plan and client goroutines under test.
// Output is discarded unless -v is set; the writer swaps to stderr on
// cleanup so goroutines that outlive the test never write to a closed
// verbose stream.
func TestLogger(t *testing.T) *log.Logger {
	t.Helper()

	var w io.Writer = io.Discard
	if testing.Verbose() {
		w = os.Stdout
	}

	logger := log.New(w, "[raumplan-test] ", log.LstdFlags)
	t.Cleanup(func() {
		logger.SetOutput(os.Stderr)
	})
	return logger
}
