// Package logx defines the abstract structured log sink spec.md §6 calls
// for and a log/slog-backed implementation with rotating-file output.
package logx

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Sink is the injected log target. Every engine component takes a Sink
// rather than calling a global logger directly, so tests can substitute a
// recording sink and assert on emitted events.
type Sink interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warningf(format string, args ...any)
	Errorf(format string, args ...any)
	Criticalf(format string, args ...any)
}

// SlogSink is the default Sink, backed by log/slog.
type SlogSink struct {
	logger *slog.Logger
}

var _ Sink = (*SlogSink)(nil)

// NewSlogSink wraps an arbitrary io.Writer in a text-handler slog.Logger.
func NewSlogSink(w io.Writer) *SlogSink {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	return &SlogSink{logger: slog.New(handler)}
}

// NewRotatingSink opens a lumberjack-rotated log file at path and returns a
// Sink writing to it. maxSizeMB, maxBackups, and maxAgeDays mirror
// lumberjack's own field names; zero values fall back to lumberjack's
// defaults (100 MiB, unlimited backups, unlimited age).
func NewRotatingSink(path string, maxSizeMB, maxBackups, maxAgeDays int) *SlogSink {
	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}
	return NewSlogSink(w)
}

// NewDiscardSink returns a Sink that drops every event, for tests that don't
// care about log output.
func NewDiscardSink() *SlogSink { return NewSlogSink(io.Discard) }

func (s *SlogSink) Debugf(format string, args ...any)    { s.logger.Debug(fmt.Sprintf(format, args...)) }
func (s *SlogSink) Infof(format string, args ...any)     { s.logger.Info(fmt.Sprintf(format, args...)) }
func (s *SlogSink) Warningf(format string, args ...any)  { s.logger.Warn(fmt.Sprintf(format, args...)) }
func (s *SlogSink) Errorf(format string, args ...any)    { s.logger.Error(fmt.Sprintf(format, args...)) }
func (s *SlogSink) Criticalf(format string, args ...any) {
	s.logger.Error("CRITICAL: " + fmt.Sprintf(format, args...))
}

// NewStderrSink is a convenience constructor for CLI use (cmd/bgate), not
// backed by a rotating file.
func NewStderrSink() *SlogSink { return NewSlogSink(os.Stderr) }
