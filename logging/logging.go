// Package logging is the ambient logger of the core. Its one use is
// Doc.ApplyCausal logging a dropped anti-entropy delta at Warn; policy
// derivation, lens transforms and join/unjoin log nothing.
// Modeled on the teacher's logging package shape (a small Logger
// interface plus a logrus-backed StandardLogger and a NoOpLogger), with
// the level-parsing and formatter-selection helpers of its
// internal/logging package folded in directly since that package existed
// only to serve this one.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// Level is a logging severity, ordered so `level >= Info`-style
// comparisons work as plain integer comparisons.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "debug"
	case Warn:
		return "warn"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// ParseLevel parses a level name, defaulting to Info on an empty string.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return Debug, nil
	case "", "info":
		return Info, nil
	case "warn":
		return Warn, nil
	case "error":
		return Error, nil
	default:
		return Info, fmt.Errorf("invalid log level: %v", s)
	}
}

// Logger is the interface every core component logs through.
type Logger interface {
	Debug(fmt string, a ...interface{})
	Info(fmt string, a ...interface{})
	Warn(fmt string, a ...interface{})
	Error(fmt string, a ...interface{})
	WithFields(fields map[string]interface{}) Logger
	SetLevel(Level)
	GetLevel() Level
}

// StandardLogger is the default logrus-backed implementation.
type StandardLogger struct {
	entry *logrus.Entry
}

// New returns a StandardLogger writing JSON-formatted lines, matching the
// teacher's sdk.Options default console logger.
func New() *StandardLogger {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{})
	return &StandardLogger{entry: logrus.NewEntry(l)}
}

func (s *StandardLogger) SetFormatter(f logrus.Formatter) { s.entry.Logger.SetFormatter(f) }

func (s *StandardLogger) SetOutput(w io.Writer) { s.entry.Logger.SetOutput(w) }

// Fields returns the fields this logger was built with, for tests and
// diagnostics — mirrors logrus.Entry.Data directly.
func (s *StandardLogger) Fields() map[string]interface{} { return s.entry.Data }

func (s *StandardLogger) Debug(f string, a ...interface{}) { s.entry.Debugf(f, a...) }
func (s *StandardLogger) Info(f string, a ...interface{})  { s.entry.Infof(f, a...) }
func (s *StandardLogger) Warn(f string, a ...interface{})  { s.entry.Warnf(f, a...) }
func (s *StandardLogger) Error(f string, a ...interface{}) { s.entry.Errorf(f, a...) }

func (s *StandardLogger) WithFields(fields map[string]interface{}) Logger {
	return &StandardLogger{entry: s.entry.WithFields(fields)}
}

func (s *StandardLogger) SetLevel(l Level) {
	switch l {
	case Debug:
		s.entry.Logger.SetLevel(logrus.DebugLevel)
	case Warn:
		s.entry.Logger.SetLevel(logrus.WarnLevel)
	case Error:
		s.entry.Logger.SetLevel(logrus.ErrorLevel)
	default:
		s.entry.Logger.SetLevel(logrus.InfoLevel)
	}
}

func (s *StandardLogger) GetLevel() Level {
	switch s.entry.Logger.GetLevel() {
	case logrus.DebugLevel:
		return Debug
	case logrus.WarnLevel:
		return Warn
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return Error
	default:
		return Info
	}
}

// NoOpLogger discards everything — the default when no logger is
// configured (spec.md carries no logging requirement of its own; this
// keeps create_memory usable with zero setup).
type NoOpLogger struct{}

func NewNoOpLogger() *NoOpLogger { return &NoOpLogger{} }

func (*NoOpLogger) Debug(string, ...interface{}) {}
func (*NoOpLogger) Info(string, ...interface{})  {}
func (*NoOpLogger) Warn(string, ...interface{})  {}
func (*NoOpLogger) Error(string, ...interface{}) {}
func (n *NoOpLogger) WithFields(map[string]interface{}) Logger { return n }
func (*NoOpLogger) SetLevel(Level)                              {}
func (*NoOpLogger) GetLevel() Level                              { return Info }
