package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

var (
	verbose atomic.Bool

	mu         sync.Mutex
	output     io.Writer = os.Stdout
	outputFile *os.File
	outputPath string
	events     = zerolog.Nop()
)

// SetVerbose enables or disables debug logging for the current process.
func SetVerbose(enabled bool) {
	verbose.Store(enabled)

	mu.Lock()
	defer mu.Unlock()
	rebuildEvents()
}

// Verbose reports whether debug logging is enabled.
func Verbose() bool {
	return verbose.Load()
}

// SetOutputFile configures optional file logging while preserving stdout output.
// Passing an empty path disables file logging.
func SetOutputFile(path string) error {
	path = strings.TrimSpace(path)

	mu.Lock()
	defer mu.Unlock()

	if path == outputPath {
		return nil
	}

	if outputFile != nil {
		if err := outputFile.Close(); err != nil {
			outputFile = nil
			outputPath = ""
			output = os.Stdout
			rebuildEvents()
			return err
		}
		outputFile = nil
		outputPath = ""
	}

	output = os.Stdout
	if path == "" {
		rebuildEvents()
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		rebuildEvents()
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		rebuildEvents()
		return err
	}

	outputFile = f
	outputPath = path
	output = io.MultiWriter(os.Stdout, f)
	rebuildEvents()
	return nil
}

// Close flushes and closes the log file if one is configured.
func Close() error {
	mu.Lock()
	defer mu.Unlock()

	if outputFile == nil {
		return nil
	}
	err := outputFile.Close()
	outputFile = nil
	outputPath = ""
	output = os.Stdout
	rebuildEvents()
	return err
}

// Component returns a structured logger tagged with the given component name.
// Events go to stderr when verbose and to the log file when one is configured;
// with neither, the returned logger discards everything.
func Component(name string) zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return events.With().Str("component", name).Logger()
}

// rebuildEvents must be called with mu held.
func rebuildEvents() {
	var writers []io.Writer
	if verbose.Load() {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	if outputFile != nil {
		writers = append(writers, zerolog.ConsoleWriter{Out: outputFile, TimeFormat: time.RFC3339, NoColor: true})
	}
	if len(writers) == 0 {
		events = zerolog.Nop()
		return
	}

	level := zerolog.InfoLevel
	if verbose.Load() {
		level = zerolog.DebugLevel
	}
	events = zerolog.New(io.MultiWriter(writers...)).Level(level).With().Timestamp().Logger()
}

// Infof prints formatted output regardless of verbosity level.
func Infof(format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(output, format, args...)
}

// Infoln prints output regardless of verbosity level.
func Infoln(args ...any) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintln(output, args...)
}

// Debugf prints formatted output only when verbose mode is enabled.
func Debugf(format string, args ...any) {
	if !Verbose() {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(output, format, args...)
}
