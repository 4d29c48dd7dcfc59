// Package logger provides leveled, structured logging for pdfz.
// Messages go through a shared logrus logger. Debug messages and section
// headers are only printed when verbose mode is enabled via --verbose.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

// Log formats accepted by SetFormat.
const (
	FormatText = "text"
	FormatJSON = "json"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
	root              = newRoot(os.Stderr, FormatText)
)

func newRoot(w io.Writer, format string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(formatter(w, format))
	return l
}

func formatter(w io.Writer, format string) logrus.Formatter {
	if format == FormatJSON {
		return new(logrus.JSONFormatter)
	}
	tty := false
	if f, ok := w.(*os.File); ok {
		tty = term.IsTerminal(int(f.Fd()))
	}
	return &logrus.TextFormatter{
		DisableColors:    !tty,
		DisableTimestamp: !tty,
		FullTimestamp:    tty,
	}
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	if v {
		root.SetLevel(logrus.DebugLevel)
	} else {
		root.SetLevel(logrus.InfoLevel)
	}
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	root.SetOutput(w)
	root.SetFormatter(formatter(w, currentFormat()))
}

// SetFormat switches between text and JSON output.
// Unknown formats fall back to text.
func SetFormat(format string) {
	mu.Lock()
	defer mu.Unlock()
	root.SetFormatter(formatter(output, format))
}

func currentFormat() string {
	if _, ok := root.Formatter.(*logrus.JSONFormatter); ok {
		return FormatJSON
	}
	return FormatText
}

// Entry returns the root entry for components that take an injected logger.
func Entry() *logrus.Entry {
	return logrus.NewEntry(root)
}

// WithFields returns an entry carrying structured fields.
func WithFields(fields logrus.Fields) *logrus.Entry {
	return root.WithFields(fields)
}

// Discard returns an entry that drops everything. Used as the default for
// components constructed without a logger.
func Discard() *logrus.Entry {
	return logrus.NewEntry(&logrus.Logger{Out: io.Discard, Formatter: new(logrus.TextFormatter)})
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	root.Debugf(format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Info prints an informational message.
func Info(format string, args ...any) {
	root.Infof(format, args...)
}

// Warn prints a warning message.
func Warn(format string, args ...any) {
	root.Warnf(format, args...)
}

// Error prints an error message.
func Error(format string, args ...any) {
	root.Errorf(format, args...)
}
