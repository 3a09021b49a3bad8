package logging

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// Logger is the logging surface used by the harness and the CLI
type Logger interface {
	Error(fmt string, a ...any)
	Warn(fmt string, a ...any)
	Info(fmt string, a ...any)
	Debug(fmt string, a ...any)
	Trace(fmt string, a ...any)

	WithField(string, any) Logger
	WithFields(map[string]any) Logger
	WithError(err error) Logger
}

// StandardLogger is a Logger backed by logrus
type StandardLogger struct {
	logger *logrus.Logger
	fields map[string]any
}

// New returns a logger writing "[LEVEL] message" lines at info level
func New() *StandardLogger {
	logger := logrus.New()
	logger.SetFormatter(&LevelFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	return &StandardLogger{
		logger: logger,
	}
}

// Discard returns a logger that drops everything
func Discard() *StandardLogger {
	l := New()
	l.logger.SetOutput(io.Discard)
	return l
}

// SetOutput sets the underlying logrus output.
func (l *StandardLogger) SetOutput(w io.Writer) {
	l.logger.SetOutput(w)
}

// SetOutputFormat changes the logger format.
// available formats: level (default), text, json
func (l *StandardLogger) SetOutputFormat(format string) {
	var formatter logrus.Formatter

	switch strings.ToLower(format) {
	case "level", "":
		formatter = &LevelFormatter{}
	case "text":
		formatter = &logrus.TextFormatter{
			FullTimestamp:          true,
			DisableLevelTruncation: true,
			PadLevelText:           true,
			QuoteEmptyFields:       true,
		}
	case "json":
		formatter = &logrus.JSONFormatter{}
	default:
		return
	}

	l.logger.SetFormatter(formatter)
}

// GetLevel returns the current logging level.
func (l *StandardLogger) GetLevel() string {
	return l.logger.GetLevel().String()
}

// SetLevel sets the logger level. Accepted values are trace, debug, info,
// warn (or warning) and error, case-insensitive.
func (l *StandardLogger) SetLevel(level string) error {
	parsed, err := ParseLevel(level)
	if err != nil {
		return err
	}

	l.logger.SetLevel(parsed)
	return nil
}

// ParseLevel normalizes a level name to a logrus level
func ParseLevel(level string) (logrus.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return logrus.TraceLevel, nil
	case "debug":
		return logrus.DebugLevel, nil
	case "info", "":
		return logrus.InfoLevel, nil
	case "warn", "warning":
		return logrus.WarnLevel, nil
	case "error":
		return logrus.ErrorLevel, nil
	default:
		return logrus.InfoLevel, fmt.Errorf("invalid log level %q, must be one of: trace, debug, info, warn, error", level)
	}
}

// WithFields creates a new logger instance with the given default fields.
func (l *StandardLogger) WithFields(fields map[string]any) Logger {
	cp := *l
	cp.fields = make(map[string]any, len(l.fields)+len(fields))
	for k, v := range l.fields {
		cp.fields[k] = v
	}
	for k, v := range fields {
		cp.fields[k] = v
	}
	return &cp
}

// WithField creates a new logger instance with a single field.
func (l *StandardLogger) WithField(name string, value any) Logger {
	return l.WithFields(map[string]any{name: value})
}

// WithError adds an error as single field to the logger.
func (l *StandardLogger) WithError(err error) Logger {
	return l.WithField("error", err)
}

func (l *StandardLogger) Error(fmt string, a ...any) {
	l.logger.WithFields(l.fields).Errorf(fmt, a...)
}

func (l *StandardLogger) Warn(fmt string, a ...any) {
	l.logger.WithFields(l.fields).Warnf(fmt, a...)
}

func (l *StandardLogger) Info(fmt string, a ...any) {
	l.logger.WithFields(l.fields).Infof(fmt, a...)
}

func (l *StandardLogger) Debug(fmt string, a ...any) {
	l.logger.WithFields(l.fields).Debugf(fmt, a...)
}

func (l *StandardLogger) Trace(fmt string, a ...any) {
	l.logger.WithFields(l.fields).Tracef(fmt, a...)
}

// LevelFormatter writes entries as "[LEVEL] message key=value ..."
type LevelFormatter struct{}

func (f *LevelFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "[%s] %s", strings.ToUpper(entry.Level.String()), entry.Message)

	keys := lo.Keys(entry.Data)
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&buf, " %s=%v", key, entry.Data[key])
	}

	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
