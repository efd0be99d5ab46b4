// Package logger provides per-component leveled loggers. Lines are JSON
// objects produced by gommon/log, the same logger echo uses, so request
// logs and application logs share one format.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/labstack/gommon/log"
)

// Logger is a gommon logger tagged with a component name.
type Logger struct {
	*log.Logger
	component string
}

// header is gommon's default without file and line, which would always
// point at the wrappers below.
const header = `{"time":"${time_rfc3339_nano}","level":"${level}","prefix":"${prefix}"}`

var (
	mu      sync.Mutex
	level   = log.INFO
	output  io.Writer = os.Stdout
	created []*log.Logger
)

// New creates a logger for the given component, e.g. "lifecycle".
func New(component string) *Logger {
	mu.Lock()
	defer mu.Unlock()
	l := log.New(component)
	l.SetHeader(header)
	l.SetOutput(output)
	l.SetLevel(level)
	created = append(created, l)
	return &Logger{Logger: l, component: component}
}

// SetLevel sets the level of every component logger, including those
// created at package init. Unknown names fall back to info.
func SetLevel(name string) {
	mu.Lock()
	defer mu.Unlock()
	level = ParseLevel(name)
	for _, l := range created {
		l.SetLevel(level)
	}
}

// SetOutput redirects every component logger.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	for _, l := range created {
		l.SetOutput(w)
	}
}

// ParseLevel maps a level name to a gommon level.
func ParseLevel(name string) log.Lvl {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return log.DEBUG
	case "warn", "warning":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	}
	return log.INFO
}

// Component returns the component name.
func (l *Logger) Component() string { return l.component }

// Info logs an info message
func (l *Logger) Info(format string, v ...interface{}) { l.Logger.Infof(format, v...) }

// Warn logs a warning message
func (l *Logger) Warn(format string, v ...interface{}) { l.Logger.Warnf(format, v...) }

// Error logs an error message
func (l *Logger) Error(format string, v ...interface{}) { l.Logger.Errorf(format, v...) }

// Debug logs a debug message
func (l *Logger) Debug(format string, v ...interface{}) { l.Logger.Debugf(format, v...) }

