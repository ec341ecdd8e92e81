// Package logging provides the leveled logger used by every worker in
// the codemp client core. Workers log-and-continue on recoverable
// failures (transform errors, apply errors, dropped backpressure
// values) rather than propagating them to the caller; this package is
// how those warnings surface.
package logging

import (
	"log"
	"os"
	"strings"
)

// Level is a logging verbosity threshold.
type Level int

const (
	LevelError Level = iota
	LevelInfo
	LevelDebug
)

var current Level = LevelInfo

// Init reads CODEMP_LOG_LEVEL ("debug", "info", "error") and sets the
// package-wide verbosity. Defaults to LevelInfo if unset or unrecognized.
func Init() {
	switch strings.ToLower(os.Getenv("CODEMP_LOG_LEVEL")) {
	case "debug":
		current = LevelDebug
	case "error":
		current = LevelError
	default:
		current = LevelInfo
	}
}

// Debug logs a debug message, only emitted when CODEMP_LOG_LEVEL=debug.
func Debug(format string, v ...interface{}) {
	if current >= LevelDebug {
		log.Printf("[DEBUG] "+format, v...)
	}
}

// Info logs an info message.
func Info(format string, v ...interface{}) {
	if current >= LevelInfo {
		log.Printf("[INFO] "+format, v...)
	}
}

// Warn logs a recoverable-error message. Worker loops call this for
// apply/transform/serialization failures they drop rather than crash on.
func Warn(format string, v ...interface{}) {
	log.Printf("[WARN] "+format, v...)
}

// Error logs an unrecoverable or caller-surfaced error. Always emitted.
func Error(format string, v ...interface{}) {
	log.Printf("[ERROR] "+format, v...)
}
