// internal/recovery/recovery.go
package recovery

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/charmbracelet/log"
)

var exit = os.Exit

// HandlePanic should be deferred at the top of main() or goroutines.
// It logs panic details and exits with code 1.
func HandlePanic() {
	if r := recover(); r != nil {
		report(os.Stderr, r, debug.Stack())
		exit(1)
	}
}

// HandlePanicFunc logs panic details and calls the provided cleanup function.
func HandlePanicFunc(cleanup func()) {
	if r := recover(); r != nil {
		report(os.Stderr, r, debug.Stack())
		if cleanup != nil {
			cleanup()
		}
		exit(1)
	}
}

func report(w io.Writer, r any, stack []byte) {
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          "cwdsp",
	})
	logger.Error("FATAL: panic recovered", "panic", fmt.Sprint(r))
	_, _ = fmt.Fprintf(w, "\nStack trace:\n%s\n", stack)
}
