// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package plog

import (
	"go.uber.org/zap/zapcore"
)

// LogLevel selects how much the hook logs. Leaving it unset logs only errors and warnings.
type LogLevel string

const (
	LevelWarning LogLevel = ""
	LevelInfo    LogLevel = "info"
	LevelDebug   LogLevel = "debug"
	LevelTrace   LogLevel = "trace"
	LevelAll     LogLevel = "all"
)

// logr verbosity used for each level. zap sees these negated.
const (
	verbosityWarning = 0
	verbosityInfo    = 2
	verbosityDebug   = 4
	verbosityTrace   = 6
	verbosityAll     = 8

	// LevelAll is configured far above verbosityAll so that V(n) for any n a library might use is enabled.
	verbosityAllConfigured = verbosityAll + 100
)

//nolint:gochecknoglobals
var levelVerbosity = map[LogLevel]int8{
	LevelWarning: verbosityWarning,
	LevelInfo:    verbosityInfo,
	LevelDebug:   verbosityDebug,
	LevelTrace:   verbosityTrace,
	LevelAll:     verbosityAllConfigured,
}

// verbosity reports the logr verbosity for l, or false when l is not a known level.
func (l LogLevel) verbosity() (int8, bool) {
	v, ok := levelVerbosity[l]
	return v, ok
}

// UnmarshalText lets LOG_LEVEL and the log.level key be decoded directly into a LogLevel.
// "warning" is accepted as a name for the unset level.
func (l *LogLevel) UnmarshalText(b []byte) error {
	parsed := LogLevel(b)
	if parsed == "warning" {
		parsed = LevelWarning
	}
	if _, ok := parsed.verbosity(); !ok {
		return errInvalidLogLevel
	}
	*l = parsed
	return nil
}

var _ zapcore.LevelEnabler = LevelWarning

// Enabled makes a LogLevel usable as a zap level filter that follows the global level.
func (l LogLevel) Enabled(_ zapcore.Level) bool {
	return Enabled(l)
}

// Enabled reports whether messages at level would currently be written.
func Enabled(level LogLevel) bool {
	v, ok := level.verbosity()
	if !ok || !globalLevel.Enabled(zapcore.Level(-v)) {
		return false
	}
	return currentSink().logger.V(int(v)).Enabled()
}

// levelName is the inverse of verbosity, used when encoding entries. Levels above zero are zap's own.
func levelName(l zapcore.Level) LogLevel {
	if l > 0 {
		return LogLevel(l.String())
	}

	switch v := -l; {
	case v >= verbosityAll:
		return LevelAll
	case v >= verbosityTrace:
		return LevelTrace
	case v >= verbosityDebug:
		return LevelDebug
	case v >= verbosityInfo:
		return LevelInfo
	default:
		// level 0 is both warning and plain logr Info, so zap encodes it itself.
		return ""
	}
}
