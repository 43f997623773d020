// Package debug provides conditional debug logging for csvgraph.
//
// Debug logging is enabled by setting the CSVGRAPH_DEBUG environment variable:
//
//	CSVGRAPH_DEBUG=1 csvgraph render --nodes n.csv --edges e.csv -o out.svg
//
// When enabled, debug messages are written through a zap logger at debug
// level (stderr by default, or whatever logger SetLogger installs).
// When disabled (default), all debug functions are no-ops.
//
// Usage:
//
//	import "github.com/vanderheijden86/csvgraph/pkg/debug"
//
//	func myFunc() {
//	    debug.Log("processing %d rows", count)
//	    // ...
//	    debug.LogTiming("myFunc", elapsed)
//	}
package debug

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// enabled is true when CSVGRAPH_DEBUG env var is set
	enabled atomic.Bool

	mu     sync.RWMutex
	logger *zap.SugaredLogger
)

func init() {
	if os.Getenv("CSVGRAPH_DEBUG") != "" {
		enabled.Store(true)
	}
}

func defaultLogger() *zap.SugaredLogger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000000")
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stderr), zap.DebugLevel)
	return zap.New(core).Named("debug").Sugar()
}

func get() *zap.SugaredLogger {
	mu.RLock()
	l := logger
	mu.RUnlock()
	if l != nil {
		return l
	}

	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		logger = defaultLogger()
	}
	return logger
}

// Enabled returns whether debug logging is enabled.
func Enabled() bool {
	return enabled.Load()
}

// SetEnabled allows programmatic control of debug logging.
func SetEnabled(e bool) {
	enabled.Store(e)
}

// SetLogger routes debug output through l. A nil logger restores the
// stderr default.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	if l == nil {
		logger = nil
		return
	}
	logger = l.Named("debug").Sugar()
}

// Log writes a debug message if debug logging is enabled.
// Uses printf-style formatting.
func Log(format string, args ...any) {
	if !Enabled() {
		return
	}
	get().Debugf(format, args...)
}

// LogTiming writes a timing message if debug logging is enabled.
func LogTiming(name string, d time.Duration) {
	if !Enabled() {
		return
	}
	get().Debugf("%s took %v", name, d)
}

// LogIf writes a debug message only if the condition is true.
func LogIf(cond bool, format string, args ...any) {
	if !Enabled() || !cond {
		return
	}
	get().Debugf(format, args...)
}

// LogEnterExit logs function entry and exit with timing.
// Usage:
//
//	func myFunc() {
//	    defer debug.LogEnterExit("myFunc")()
//	    // ...
//	}
func LogEnterExit(name string) func() {
	if !Enabled() {
		return func() {}
	}
	get().Debugf("-> %s", name)
	start := time.Now()
	return func() {
		get().Debugf("<- %s (%v)", name, time.Since(start))
	}
}

// Trace is an alias for LogEnterExit for convenience.
var Trace = LogEnterExit

// Dump logs a value with its type for debugging complex structures.
func Dump(name string, v any) {
	if !Enabled() {
		return
	}
	get().Debugf("%s: %T = %+v", name, v, v)
}

// Section logs a section header for visual organization in debug output.
func Section(name string) {
	if !Enabled() {
		return
	}
	get().Debugf("=== %s ===", name)
}

// AssertNoError logs and panics if err is not nil.
// Only active when debug is enabled.
func AssertNoError(err error, context string) {
	if !Enabled() {
		return
	}
	if err != nil {
		get().Errorf("ASSERTION FAILED: %s: %v", context, err)
		panic(fmt.Sprintf("debug assertion failed: %s: %v", context, err))
	}
}
