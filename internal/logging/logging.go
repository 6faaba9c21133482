// Package logging provides the small leveled logger quorum.Logger needs,
// built directly on the standard library log package (log.New/Printf)
// with level prefixes and filtering added on top.
package logging

import (
	"log"
	"os"
	"strings"
)

// Level is an ordered verbosity threshold.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelCritical
	LevelEmerg
)

func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "critical", "crit":
		return LevelCritical
	case "emerg", "emergency":
		return LevelEmerg
	default:
		return LevelInfo
	}
}

// Logger satisfies quorum.Logger on top of a standard library *log.Logger.
type Logger struct {
	min Level
	l   *log.Logger
}

// New returns a Logger writing to stderr with the standard date/time
// prefix, filtering out anything below min.
func New(min Level) *Logger {
	return &Logger{min: min, l: log.New(os.Stderr, "", log.LstdFlags)}
}

func (lg *Logger) logf(level Level, tag, format string, args ...interface{}) {
	if level < lg.min {
		return
	}
	lg.l.Printf(tag+" "+format, args...)
}

func (lg *Logger) Debugf(format string, args ...interface{}) {
	lg.logf(LevelDebug, "[DEBUG]", format, args...)
}

func (lg *Logger) Infof(format string, args ...interface{}) {
	lg.logf(LevelInfo, "[INFO]", format, args...)
}

func (lg *Logger) Warnf(format string, args ...interface{}) {
	lg.logf(LevelWarn, "[WARN]", format, args...)
}

func (lg *Logger) Criticalf(format string, args ...interface{}) {
	lg.logf(LevelCritical, "[CRIT]", format, args...)
}

func (lg *Logger) Emergf(format string, args ...interface{}) {
	lg.logf(LevelEmerg, "[EMERG]", format, args...)
}
