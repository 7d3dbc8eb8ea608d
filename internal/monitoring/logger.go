// Package monitoring carries the diagnostic logger used by the library
// packages. Binaries keep the default (log.Printf); tests mute or capture it.
package monitoring

import (
	"log"
	"time"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Stage logs the start of a named processing stage and returns a function
// that logs its duration when called. Typical use:
//
//	defer monitoring.Stage("range profile")()
func Stage(name string) func() {
	start := time.Now()
	Logf("[%s] started", name)
	return func() {
		Logf("[%s] finished in %s", name, time.Since(start).Round(time.Microsecond))
	}
}
