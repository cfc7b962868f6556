// Package monitoring holds the demo's log streams.
//
// Three streams separate what an operator must act on (ops), what explains a
// run (diag) and per-sample telemetry (trace). Ops and diag write to stderr
// until SetLogWriters says otherwise; trace starts muted. A nil writer mutes
// a stream.
package monitoring

import (
	"io"
	"log"
	"os"
	"sync"
)

var (
	mu          sync.RWMutex
	opsLogger   = newLogger(opsPrefix, os.Stderr)
	diagLogger  = newLogger(diagPrefix, os.Stderr)
	traceLogger *log.Logger
)

const (
	opsPrefix   = "[ops] "
	diagPrefix  = "[diag] "
	tracePrefix = "[trace] "
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces Logf. Passing nil sets a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetLogWriters configures the three streams. Pass nil for any writer to
// disable that stream.
func SetLogWriters(ops, diag, trace io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	opsLogger = newLogger(opsPrefix, ops)
	diagLogger = newLogger(diagPrefix, diag)
	traceLogger = newLogger(tracePrefix, trace)
}

func newLogger(prefix string, w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, prefix, log.LstdFlags|log.Lmicroseconds)
}

func logTo(l **log.Logger, format string, args ...interface{}) {
	mu.RLock()
	lg := *l
	mu.RUnlock()
	if lg != nil {
		lg.Printf(format, args...)
	}
}

// Opsf logs actionable warnings and failures.
func Opsf(format string, args ...interface{}) { logTo(&opsLogger, format, args...) }

// Diagf logs run diagnostics: phases, parameters, connection attempts.
func Diagf(format string, args ...interface{}) { logTo(&diagLogger, format, args...) }

// Tracef logs per-sample telemetry.
func Tracef(format string, args ...interface{}) { logTo(&traceLogger, format, args...) }
