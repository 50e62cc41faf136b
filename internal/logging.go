// Package internal holds process-wide setup shared by the binaries.
package internal

import (
	"io"
	"log"
	"os"
)

// InitLogging sends the standard logger to stdout with microsecond
// timestamps.
func InitLogging() {
	InitLoggingTo(os.Stdout)
}

// InitLoggingTo is InitLogging with a custom destination. The oneshot CLI
// logs to stderr so stdout carries only query results.
func InitLoggingTo(w io.Writer) {
	log.SetOutput(w)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
}
