package urllib3

import (
	"log"
	"os"
)

// Logger abstracts diagnostic logging so embedders can route it wherever
// they like.
type Logger interface {
	Debugf(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
}

// noopLogger discards everything; the default when no Logger is configured.
type noopLogger struct{}

func (noopLogger) Debugf(string, ...interface{}) {}
func (noopLogger) Warnf(string, ...interface{})  {}
func (noopLogger) Errorf(string, ...interface{}) {}

// NewDefaultLogger returns a Logger writing to stderr, for callers that want
// visible diagnostics without writing their own Logger implementation.
func NewDefaultLogger() Logger {
	return &stdLogger{l: log.New(os.Stderr, "", log.Ldate|log.Lmicroseconds)}
}

type stdLogger struct {
	l *log.Logger
}

func (s *stdLogger) Debugf(format string, v ...interface{}) { s.output("DEBUG", format, v...) }
func (s *stdLogger) Warnf(format string, v ...interface{})  { s.output("WARN", format, v...) }
func (s *stdLogger) Errorf(format string, v ...interface{}) { s.output("ERROR", format, v...) }

func (s *stdLogger) output(level, format string, v ...interface{}) {
	format = level + " [urllib3] " + format
	if len(v) == 0 {
		s.l.Print(format)
		return
	}
	s.l.Printf(format, v...)
}
