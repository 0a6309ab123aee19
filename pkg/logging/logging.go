// Package logging configures the process-wide structured logger. Every
// package logs through charmbracelet/log; this package only decides where
// that output goes and how verbose it is.
package logging

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
)

var logFile *os.File

// Init points the default logger at stderr, or at a file when path is
// non-empty. Stdio transports own stdout, so logs never go there.
func Init(level, path string) error {
	parsed, err := log.ParseLevel(level)
	if err != nil {
		parsed = log.InfoLevel
	}
	log.SetLevel(parsed)
	log.SetReportTimestamp(true)

	if path == "" {
		log.SetOutput(os.Stderr)
		return nil
	}

	logFile, err = os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file %s: %w", path, err)
	}

	log.SetOutput(logFile)
	log.SetFormatter(log.TextFormatter)
	log.Info("logging initialized", "file", path, "level", parsed.String())
	return nil
}

// Close flushes and closes the log file, if one is in use.
func Close() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}
