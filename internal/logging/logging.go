// Package logging adapts logrus to the config.Logger interface used across
// the build pipeline, and renders transfer progress for the terminal.
package logging

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/ZebulonRouseFrantzich/xulpack/internal/config"
)

// Logger is a logrus-backed config.Logger.
type Logger struct {
	entry *logrus.Entry
}

var _ config.Logger = (*Logger)(nil)

// New creates a Logger writing to out. Verbose enables debug output.
func New(out io.Writer, verbose bool) *Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp:       true,
		DisableLevelTruncation: true,
	})
	l.SetLevel(logrus.InfoLevel)
	if verbose {
		l.SetLevel(logrus.DebugLevel)
	}
	return &Logger{entry: logrus.NewEntry(l)}
}

// Verbose reports whether debug-level messages are emitted.
func (l *Logger) Verbose() bool {
	return l.entry.Logger.IsLevelEnabled(logrus.DebugLevel)
}

// With returns a child logger carrying extra fields.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{entry: l.entry.WithFields(fields(keysAndValues))}
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(fields(keysAndValues)).Info(msg)
}

func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(fields(keysAndValues)).Warn(msg)
}

func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(fields(keysAndValues)).Error(msg)
}

// fields converts alternating key/value pairs into logrus fields. A trailing
// key without a value is logged under "!BADKEY".
func fields(keysAndValues []interface{}) logrus.Fields {
	f := make(logrus.Fields, len(keysAndValues)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		if i+1 >= len(keysAndValues) {
			f["!BADKEY"] = keysAndValues[i]
			break
		}
		f[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return f
}
