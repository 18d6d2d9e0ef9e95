package backend

import (
	"fmt"

	"github.com/andewx/dieselcompute/internal/logging"
)

// Assert reports a violated precondition. The violation is always logged;
// builds tagged dieselcompute_debug also panic. It returns cond so callers can
// bail out in release builds.
func Assert(cond bool, format string, args ...any) bool {
	if cond {
		return true
	}
	msg := fmt.Sprintf(format, args...)
	logging.For("backend").Error(msg)
	if DebugBuild {
		panic(msg)
	}
	return false
}
