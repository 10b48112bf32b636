package testutil

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"testing"

	"github.com/trezcool/stemlearn/core"
	logsvc "github.com/trezcool/stemlearn/services/logger"
)

// NewLogger returns a disabled rollbar logger printing through `t`.
func NewLogger(t *testing.T) core.Logger {
	conf := &core.Config{Env: "TEST", AppName: "STEMLearn", TestMode: true}
	logger := logsvc.NewRollbarLogger(log.New(testWriter{t}, "TEST : ", 0), conf)
	logger.Enable(false)
	return logger
}

type testWriter struct {
	t *testing.T
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// RecordingLogger keeps every logged message, prefixed with its level.
type RecordingLogger struct {
	mu       sync.Mutex
	Messages []string
}

var _ core.Logger = (*RecordingLogger)(nil)

func (l *RecordingLogger) record(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Messages = append(l.Messages, fmt.Sprintf("%s: %s", level, msg))
}

// Count returns how many messages were logged at `level`.
func (l *RecordingLogger) Count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	var n int
	for _, m := range l.Messages {
		if strings.HasPrefix(m, level+": ") {
			n++
		}
	}
	return n
}

func (l *RecordingLogger) Debug(msg string, _ ...interface{}) { l.record("DEBUG", msg) }
func (l *RecordingLogger) Info(msg string, _ ...interface{})  { l.record("INFO", msg) }
func (l *RecordingLogger) Warn(msg string, _ ...interface{})  { l.record("WARN", msg) }
func (l *RecordingLogger) Error(msg string, _ ...interface{}) { l.record("ERROR", msg) }
func (l *RecordingLogger) Fatal(msg string, _ ...interface{}) { l.record("FATAL", msg) }
