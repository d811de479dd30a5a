package logger

import (
	"sync"
)

// Log levels accepted in config.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

var (
	globalLogger *Logger
	once         sync.Once
)

// Get returns the process-wide logger. Only the first call's level is honored.
func Get(level string) *Logger {
	once.Do(func() {
		globalLogger = newZapLogger(level)
	})
	return globalLogger
}

// Nop returns a logger that discards everything. Components fall back to it
// when constructed without a logger, which keeps tests quiet.
func Nop() *Logger {
	return nopLogger
}

// OrNop returns l, or the no-op logger when l is nil.
func OrNop(l *Logger) *Logger {
	if l == nil {
		return nopLogger
	}
	return l
}
