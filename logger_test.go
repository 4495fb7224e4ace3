package urllib3

import "testing"

func TestNoopLoggerDoesNotPanic(t *testing.T) {
	var l Logger = noopLogger{}
	l.Debugf("x=%d", 1)
	l.Warnf("no args")
	l.Errorf("%s", "boom")
}

func TestNewDefaultLoggerImplementsLogger(t *testing.T) {
	l := NewDefaultLogger()
	l.Debugf("starting %s", "up")
	l.Warnf("watch out")
	l.Errorf("failed: %v", "oops")
}
