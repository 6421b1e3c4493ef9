// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package plog

import (
	"context"
	"time"

	"go.uber.org/zap/zapcore"
	"k8s.io/apimachinery/pkg/util/wait"

	"go.pinniped.dev/passwordhook/internal/constable"
)

const (
	errInvalidLogLevel  = constable.Error("invalid log level, valid choices are the empty string, info, debug, trace and all")
	errInvalidLogFormat = constable.Error("invalid log format, valid choices are the empty string, 'json' and 'text'")

	flushInterval = time.Minute
)

// LogFormat is either json (the default) or text.
type LogFormat string

const (
	FormatJSON LogFormat = "json"
	FormatText LogFormat = "text"
)

// zapEncoding returns the name of the zap encoder that renders f.
func (f LogFormat) zapEncoding() (string, error) {
	switch f {
	case "", FormatJSON:
		return "json", nil
	case FormatText:
		return "console", nil
	default:
		return "", errInvalidLogFormat
	}
}

// UnmarshalText lets LOG_FORMAT and the log.format key be decoded directly into a LogFormat.
func (f *LogFormat) UnmarshalText(b []byte) error {
	parsed := LogFormat(b)
	if _, err := parsed.zapEncoding(); err != nil {
		return err
	}
	if parsed == "" {
		parsed = FormatJSON
	}
	*f = parsed
	return nil
}

// LogSpec is the log section of the hook's configuration.
type LogSpec struct {
	Level  LogLevel  `json:"level,omitempty"`
	Format LogFormat `json:"format,omitempty"`
}

// ValidateAndSetLogLevelAndFormatGlobally replaces the global logger. The context controls the
// lifetime of the periodic flush loop, and tests may use it to inject output overrides.
func ValidateAndSetLogLevelAndFormatGlobally(ctx context.Context, spec LogSpec) error {
	v, ok := spec.Level.verbosity()
	if !ok {
		return errInvalidLogLevel
	}
	if _, err := spec.Format.zapEncoding(); err != nil {
		return err
	}

	globalLevel.SetLevel(zapcore.Level(-v))

	logger, flush := newLogr(ctx, spec.Format)
	installSink(logger, flush)

	go wait.UntilWithContext(ctx, func(context.Context) { flush() }, flushInterval)
	go func() {
		<-ctx.Done()
		flush()
	}()

	return nil
}
