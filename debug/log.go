package debug

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	logger   = newLogger()
	file     *os.File
	mu       sync.Mutex
	counters = make(map[string]int)
)

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.DebugLevel)
	l.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	})
	return l
}

// DefaultPath returns ~/.config/stepseq/debug.log
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "stepseq", "debug.log")
}

// Enable starts debug logging to path (truncated on open)
func Enable(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if file != nil {
		return nil
	}
	if path == "" {
		path = DefaultPath()
	}

	os.MkdirAll(filepath.Dir(path), 0755)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	file = f
	logger.SetOutput(f)
	logger.WithField("category", "debug").Info("=== Debug logging started ===")
	return nil
}

// SetOutput routes log lines to w. Passing nil discards them.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = io.Discard
	}
	logger.SetOutput(w)
}

// Disable stops debug logging
func Disable() {
	mu.Lock()
	defer mu.Unlock()

	if file != nil {
		file.Close()
		file = nil
	}
	logger.SetOutput(io.Discard)
}

// Log writes a debug-level message under category
func Log(category, format string, args ...any) {
	logger.WithField("category", category).Debugf(format, args...)
}

// Warn is for recoverable faults: a skipped beat, a substituted voice, a
// failed read.
func Warn(category, format string, args ...any) {
	logger.WithField("category", category).Warnf(format, args...)
}

// Error is for faults the caller could not recover from.
func Error(category, format string, args ...any) {
	logger.WithField("category", category).Errorf(format, args...)
}

// LogEvery logs only every N calls (use for high-frequency events)
func LogEvery(n int, category, format string, args ...any) {
	mu.Lock()
	key := category + format
	counters[key]++
	count := counters[key]
	mu.Unlock()

	if count%n == 0 {
		Log(category, format+" (every %d, count=%d)", append(args, n, count)...)
	}
}

// Fields logs a debug line with structured fields attached.
func Fields(category string, fields map[string]any, msg string) {
	logger.WithField("category", category).WithFields(logrus.Fields(fields)).Debug(msg)
}
