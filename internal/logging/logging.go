package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

const componentFieldName = "component"

// Options controls how a logrus-backed Logger is built.
type Options struct {
	// Component is attached to every entry under the "component" key.
	Component string

	// Level is a logrus level name ("debug", "info", ...). Empty means info.
	Level string

	// Format is "json" (default) or "text".
	Format string

	// Output defaults to os.Stderr so stdout stays free for documents.
	Output io.Writer
}

// StderrLogger implements Logger on top of a logrus entry.
type StderrLogger struct {
	entry *logrus.Entry
}

// NewStderrLogger creates a JSON logger writing to stderr at info level.
// component is optional and is included on every entry.
func NewStderrLogger(component string) *StderrLogger {
	l, _ := New(Options{Component: component})
	return l
}

// New builds a StderrLogger from opts. An unknown level or format is an error.
func New(opts Options) (*StderrLogger, error) {
	base := logrus.New()

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	base.SetOutput(out)

	level := logrus.InfoLevel
	if s := strings.TrimSpace(opts.Level); s != "" {
		parsed, err := logrus.ParseLevel(s)
		if err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", s, err)
		}
		level = parsed
	}
	base.SetLevel(level)

	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", "json":
		base.SetFormatter(&logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{logrus.FieldKeyMsg: "msg"},
		})
	case "text":
		base.SetFormatter(&logrus.TextFormatter{
			DisableColors: true,
			FullTimestamp: true,
		})
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	entry := logrus.NewEntry(base)
	if opts.Component != "" {
		entry = entry.WithField(componentFieldName, opts.Component)
	}
	return &StderrLogger{entry: entry}, nil
}

func toLogrusFields(fields []Field) logrus.Fields {
	m := make(logrus.Fields, len(fields))
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	return m
}

func (s *StderrLogger) Debug(msg string, fields ...Field) {
	s.entry.WithFields(toLogrusFields(fields)).Debug(msg)
}

func (s *StderrLogger) Info(msg string, fields ...Field) {
	s.entry.WithFields(toLogrusFields(fields)).Info(msg)
}

func (s *StderrLogger) Warn(msg string, fields ...Field) {
	s.entry.WithFields(toLogrusFields(fields)).Warn(msg)
}

func (s *StderrLogger) Error(msg string, fields ...Field) {
	s.entry.WithFields(toLogrusFields(fields)).Error(msg)
}

// With returns a child logger carrying fields on every entry.
func (s *StderrLogger) With(fields ...Field) Logger {
	return &StderrLogger{entry: s.entry.WithFields(toLogrusFields(fields))}
}
