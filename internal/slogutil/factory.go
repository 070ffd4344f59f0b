package slogutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"langsift/internal/config"
)

// LoggerFactory builds the process logger from configuration and CLI flags.
// Precedence for the level: CLI flags > config > default (warn).
type LoggerFactory struct {
	cfg       config.LoggingConfig
	verbosity int
	quiet     bool
	closers   []io.Closer
}

// NewLoggerFactory creates a factory. verbosity 0 without quiet means the
// CLI did not ask for a level.
func NewLoggerFactory(cfg *config.Config, verbosity int, quiet bool) *LoggerFactory {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &LoggerFactory{cfg: cfg.Logging, verbosity: verbosity, quiet: quiet}
}

// Level returns the effective level.
func (f *LoggerFactory) Level() slog.Level {
	if f.quiet || f.verbosity > 0 {
		return LevelFromVerbosity(f.verbosity, f.quiet)
	}
	if f.cfg.Level != "" {
		return LevelFromString(f.cfg.Level)
	}
	return slog.LevelWarn
}

// Logger returns a logger writing to w in the configured format. When a log
// file is configured it also receives every record in the line format, at
// the same level. A file that cannot be opened is reported on the returned
// logger and otherwise ignored.
func (f *LoggerFactory) Logger(w io.Writer) *slog.Logger {
	level := f.Level()
	console := newHandler(w, level, f.cfg.Format)
	if f.cfg.File == "" {
		return slog.New(console)
	}

	file, err := openLogFile(f.cfg.File)
	if err != nil {
		logger := slog.New(console)
		logger.Warn("Cannot open log file", "path", f.cfg.File, "error", err)
		return logger
	}
	f.closers = append(f.closers, file)

	fileLevel := level
	if fileLevel == LevelSilent {
		fileLevel = LevelFromString(f.cfg.Level)
	}
	return slog.New(NewTeeHandler(
		console,
		NewLineHandler(file, &slog.HandlerOptions{Level: fileLevel}),
	))
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
}

// Close closes all open log files.
func (f *LoggerFactory) Close() error {
	var firstErr error
	for _, c := range f.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.closers = nil
	return firstErr
}
