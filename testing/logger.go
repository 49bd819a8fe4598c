package testing

import (
	"sync"
	"testing"

	"github.com/arloliu/kgroup/types"
)

// NewTestLogger creates a logger that writes to the test log.
//
// Background goroutines often outlive the test body; entries logged after
// the test finished are dropped instead of panicking.
func NewTestLogger(t *testing.T) types.Logger {
	l := &testLogger{t: t}
	t.Cleanup(func() {
		l.mu.Lock()
		l.done = true
		l.mu.Unlock()
	})

	return l
}

type testLogger struct {
	t    *testing.T
	mu   sync.Mutex
	done bool
}

var _ types.Logger = (*testLogger)(nil)

func (l *testLogger) log(level string, msg string, keysAndValues []any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.done {
		return
	}
	l.t.Logf("%s: %s %v", level, msg, keysAndValues)
}

func (l *testLogger) Debug(msg string, keysAndValues ...any) {
	l.log("DEBUG", msg, keysAndValues)
}

func (l *testLogger) Info(msg string, keysAndValues ...any) {
	l.log("INFO", msg, keysAndValues)
}

func (l *testLogger) Warn(msg string, keysAndValues ...any) {
	l.log("WARN", msg, keysAndValues)
}

func (l *testLogger) Error(msg string, keysAndValues ...any) {
	l.log("ERROR", msg, keysAndValues)
}

func (l *testLogger) Fatal(msg string, keysAndValues ...any) {
	l.t.Fatalf("FATAL: %s %v", msg, keysAndValues)
}
