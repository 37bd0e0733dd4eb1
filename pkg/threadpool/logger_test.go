package threadpool

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
)

// Structured loggers drop in without an adapter.
var _ Logger = (*logrus.Logger)(nil)
var _ Logger = (*logrus.Entry)(nil)

// recordingLogger keeps formatted messages for assertions.
type recordingLogger struct {
	mu   sync.Mutex
	msgs []string
}

func (l *recordingLogger) record(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, level+" "+msg)
}

func (l *recordingLogger) contains(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.msgs {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

func (l *recordingLogger) Error(args ...interface{}) { l.record("ERROR", fmt.Sprint(args...)) }
func (l *recordingLogger) Errorf(format string, args ...interface{}) {
	l.record("ERROR", fmt.Sprintf(format, args...))
}
func (l *recordingLogger) Warn(args ...interface{}) { l.record("WARN", fmt.Sprint(args...)) }
func (l *recordingLogger) Warnf(format string, args ...interface{}) {
	l.record("WARN", fmt.Sprintf(format, args...))
}
func (l *recordingLogger) Info(args ...interface{}) { l.record("INFO", fmt.Sprint(args...)) }
func (l *recordingLogger) Infof(format string, args ...interface{}) {
	l.record("INFO", fmt.Sprintf(format, args...))
}
func (l *recordingLogger) Debug(args ...interface{}) { l.record("DEBUG", fmt.Sprint(args...)) }
func (l *recordingLogger) Debugf(format string, args ...interface{}) {
	l.record("DEBUG", fmt.Sprintf(format, args...))
}

func TestPool_Logging(t *testing.T) {
	log := &recordingLogger{}
	pool, err := New(Config{Workers: 2, Name: "logged"}, WithLogger(log))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := pool.Execute(func() { panic("kaboom") }); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	_ = pool.Close()

	if !log.contains("INFO pool logged: started 2 workers") {
		t.Errorf("startup was not logged, got %v", log.msgs)
	}
	if !log.contains("kaboom") {
		t.Errorf("job panic was not logged, got %v", log.msgs)
	}
	if !log.contains("INFO pool logged: closed") {
		t.Errorf("shutdown was not logged, got %v", log.msgs)
	}
}

func TestNewDefaultLogger(t *testing.T) {
	log := NewDefaultLogger()
	if log == nil {
		t.Fatal("NewDefaultLogger() returned nil")
	}
	// Exercise the leveled paths; output goes to the standard streams.
	log.Debugf("debug %d", 1)
	log.Infof("info %d", 2)
}

func TestNopLogger(t *testing.T) {
	log := NopLogger()
	log.Error("dropped")
	log.Warnf("dropped %d", 1)
	log.Info("dropped")
	log.Debugf("dropped %d", 2)
}
