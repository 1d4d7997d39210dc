// Package logging wires subsystem loggers to a shared backend.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/decred/slog"
)

// Subsystem tags
const (
	SubsystemEngine = "ENGN"
	SubsystemOutput = "OUTP"
	SubsystemDecode = "DECD"
	SubsystemPlayer = "PLYR"
)

// Subsystems lists every tag handed out by the application
var Subsystems = []string{SubsystemEngine, SubsystemOutput, SubsystemDecode, SubsystemPlayer}

// Logging owns the backend and the loggers created from it
type Logging struct {
	backend *slog.Backend
	file    *os.File

	mu      sync.Mutex
	level   slog.Level
	loggers map[string]slog.Logger
}

// ParseLevel converts a level name such as "info" or "debug"
func ParseLevel(s string) (slog.Level, error) {
	level, ok := slog.LevelFromString(strings.ToLower(strings.TrimSpace(s)))
	if !ok {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

// New creates loggers writing to w
func New(w io.Writer, level string) (*Logging, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return &Logging{
		backend: slog.NewBackend(w),
		level:   lvl,
		loggers: make(map[string]slog.Logger),
	}, nil
}

// Open creates loggers writing to the file at path (appending) and, when
// console is non-nil, to console as well. An empty path logs to console
// only; with neither, output is discarded.
func Open(path string, console io.Writer, level string) (*Logging, error) {
	var writers []io.Writer
	if console != nil {
		writers = append(writers, console)
	}

	var file *os.File
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		file = f
		writers = append(writers, f)
	}

	var w io.Writer = io.Discard
	if len(writers) > 0 {
		w = io.MultiWriter(writers...)
	}

	l, err := New(w, level)
	if err != nil {
		if file != nil {
			file.Close()
		}
		return nil, err
	}
	l.file = file
	return l, nil
}

// Logger returns the logger for a subsystem, creating it on first use
func (l *Logging) Logger(subsystem string) slog.Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	if log, ok := l.loggers[subsystem]; ok {
		return log
	}
	log := l.backend.Logger(subsystem)
	log.SetLevel(l.level)
	l.loggers[subsystem] = log
	return log
}

// SetLevel changes the level of every logger, current and future
func (l *Logging) SetLevel(level string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.level = lvl
	for _, log := range l.loggers {
		log.SetLevel(lvl)
	}
	return nil
}

// Close closes the log file, if any
func (l *Logging) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
