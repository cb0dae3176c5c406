package config

import (
	"io"
	"log"
	"os"
)

type LogLevel int

const (
	// ErrLevel=1 - the minimum level of logging.
	ErrLevel LogLevel = iota + 1

	// WarnLevel=2 - warnings and errors
	WarnLevel

	// InfoLevel=3 - high-level information, results
	InfoLevel

	// DebugLevel=4 - per pass statistics and timings
	DebugLevel

	// TraceLevel=5 - per program point results. Only useful on small functions.
	TraceLevel
)

type LogGroup struct {
	level LogLevel
	trace *log.Logger
	debug *log.Logger
	info  *log.Logger
	warn  *log.Logger
	err   *log.Logger
}

// NewLogGroup returns a log group writing to stderr at the level of config.
func NewLogGroup(config *Config) *LogGroup {
	return NewLogGroupTo(os.Stderr, LogLevel(config.LogLevel))
}

func NewLogGroupTo(w io.Writer, level LogLevel) *LogGroup {
	flags := log.Ltime | log.Lshortfile
	return &LogGroup{
		level: level,
		trace: log.New(w, "[TRACE] ", flags),
		debug: log.New(w, "[DEBUG] ", flags),
		info:  log.New(w, "[INFO] ", flags),
		warn:  log.New(w, "[WARN] ", flags),
		err:   log.New(w, "[ERROR] ", flags),
	}
}

// SetAllOutput sets all the output writers to the writer provided
func (l *LogGroup) SetAllOutput(w io.Writer) {
	for _, lg := range l.loggers() {
		lg.SetOutput(w)
	}
}

// SetAllFlags sets the flag of all loggers in the log group to the argument provided
func (l *LogGroup) SetAllFlags(x int) {
	for _, lg := range l.loggers() {
		lg.SetFlags(x)
	}
}

func (l *LogGroup) loggers() []*log.Logger {
	return []*log.Logger{l.trace, l.debug, l.info, l.warn, l.err}
}

// A nil *LogGroup discards everything.

func (l *LogGroup) Tracef(format string, v ...any) {
	if l != nil && l.level >= TraceLevel {
		l.trace.Printf(format, v...)
	}
}

func (l *LogGroup) Debugf(format string, v ...any) {
	if l != nil && l.level >= DebugLevel {
		l.debug.Printf(format, v...)
	}
}

func (l *LogGroup) Infof(format string, v ...any) {
	if l != nil && l.level >= InfoLevel {
		l.info.Printf(format, v...)
	}
}

func (l *LogGroup) Warnf(format string, v ...any) {
	if l != nil && l.level >= WarnLevel {
		l.warn.Printf(format, v...)
	}
}

func (l *LogGroup) Errorf(format string, v ...any) {
	if l != nil && l.level >= ErrLevel {
		l.err.Printf(format, v...)
	}
}

// LogsTrace reports whether trace output is enabled, so callers can skip
// building expensive messages.
func (l *LogGroup) LogsTrace() bool {
	return l != nil && l.level >= TraceLevel
}
