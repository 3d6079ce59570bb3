package testutil

import (
	"fmt"
	"strings"
	"sync"
)

// Entry is one recorded log call.
type Entry struct {
	Level string
	Msg   string
	KV    []interface{}
}

// String renders the entry as "level msg k=v ...".
func (e Entry) String() string {
	var b strings.Builder
	b.WriteString(e.Level)
	b.WriteByte(' ')
	b.WriteString(e.Msg)
	for i := 0; i+1 < len(e.KV); i += 2 {
		fmt.Fprintf(&b, " %v=%v", e.KV[i], e.KV[i+1])
	}
	return b.String()
}

// Logger records log calls. It satisfies config.Logger and is safe for
// concurrent use.
type Logger struct {
	mu      sync.Mutex
	entries []Entry
}

func (l *Logger) record(level, msg string, kv []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, Entry{Level: level, Msg: msg, KV: kv})
}

func (l *Logger) Debug(msg string, kv ...interface{}) { l.record("debug", msg, kv) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.record("info", msg, kv) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.record("warn", msg, kv) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.record("error", msg, kv) }

// Entries returns a copy of everything logged so far.
func (l *Logger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}

// Contains reports whether any entry at level renders with substr.
// An empty level matches every level.
func (l *Logger) Contains(level, substr string) bool {
	for _, e := range l.Entries() {
		if level != "" && e.Level != level {
			continue
		}
		if strings.Contains(e.String(), substr) {
			return true
		}
	}
	return false
}
