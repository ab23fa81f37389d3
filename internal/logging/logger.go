// Package logging writes bridge diagnostics to stderr. Stdout belongs to
// the protocol, so nothing here may ever touch it.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger appends timestamped diagnostic lines to stderr and, when
// configured, to a size-rotated log file so failures survive the
// orchestrator reaping the process.
type Logger struct {
	sinks []io.Writer
	file  io.Closer
}

// FileConfig bounds the optional rotating file sink.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
}

// New creates a logger writing to stderr. A non-empty file config adds a
// rotating file sink alongside it.
func New(file FileConfig) *Logger {
	l := &Logger{sinks: []io.Writer{os.Stderr}}
	if strings.TrimSpace(file.Path) != "" {
		rotated := &lumberjack.Logger{
			Filename:   file.Path,
			MaxSize:    file.MaxSizeMB,
			MaxBackups: file.MaxBackups,
		}
		l.sinks = append(l.sinks, rotated)
		l.file = rotated
	}
	return l
}

// NewWriter creates a logger for tests that writes only to w.
func NewWriter(w io.Writer) *Logger {
	return &Logger{sinks: []io.Writer{w}}
}

// Printf writes a single timestamped line to every sink.
func (l *Logger) Printf(format string, args ...any) {
	if l == nil || len(l.sinks) == 0 {
		return
	}
	line := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	timestamp := time.Now().Format(time.RFC3339)
	for _, sink := range l.sinks {
		fmt.Fprintf(sink, "[%s] %s\n", timestamp, line)
	}
}

// Close releases the rotating file sink, if any.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}
