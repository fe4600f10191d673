package testutil

import (
	"fmt"
	"strings"
	"sync"
)

// RecordingLogger is a cms.Logger that keeps every entry as a formatted line,
// "LEVEL msg k=v ...".
type RecordingLogger struct {
	mu      sync.Mutex
	entries []string
}

func (l *RecordingLogger) record(level, msg string, args []any) {
	var b strings.Builder
	b.WriteString(level)
	b.WriteString(" ")
	b.WriteString(msg)
	for i := 0; i+1 < len(args); i += 2 {
		fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
	}
	l.mu.Lock()
	l.entries = append(l.entries, b.String())
	l.mu.Unlock()
}

func (l *RecordingLogger) Debug(msg string, args ...any) { l.record("DEBUG", msg, args) }
func (l *RecordingLogger) Info(msg string, args ...any)  { l.record("INFO", msg, args) }
func (l *RecordingLogger) Warn(msg string, args ...any)  { l.record("WARN", msg, args) }
func (l *RecordingLogger) Error(msg string, args ...any) { l.record("ERROR", msg, args) }

// Entries returns a copy of the recorded lines.
func (l *RecordingLogger) Entries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}

// Contains reports whether any recorded line contains s.
func (l *RecordingLogger) Contains(s string) bool {
	for _, e := range l.Entries() {
		if strings.Contains(e, s) {
			return true
		}
	}
	return false
}
