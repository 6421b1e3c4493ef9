// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package plog

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/duration"
)

// newLogr builds the zap backed logr.Logger for format. An unknown format falls back to json.
func newLogr(ctx context.Context, format LogFormat) (logr.Logger, func()) {
	encoding, err := format.zapEncoding()
	if err != nil {
		encoding = "json"
	}

	out := zapcore.Lock(zapcore.AddSync(os.Stderr))
	tweak := productionTweaks(encoding)
	var opts []zap.Option

	if o, ok := ctx.Value(overridesKey{}).(*zapOverrides); ok {
		if o.w != nil {
			out = zapcore.Lock(zapcore.AddSync(o.w))
		}
		if o.tweak != nil {
			tweak = o.tweak
		}
		opts = o.opts
	}

	return newZapr(encoding, out, tweak, opts...)
}

// productionTweaks makes the text format readable by people tailing the hook's output.
func productionTweaks(encoding string) func(*zap.Config) {
	if encoding != "console" {
		return nil
	}
	return func(c *zap.Config) {
		c.EncoderConfig.LevelKey = zapcore.OmitKey
		c.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
		c.EncoderConfig.EncodeTime = humanTimeEncoder
		c.EncoderConfig.EncodeDuration = humanDurationEncoder
	}
}

func newZapr(encoding string, out zapcore.WriteSyncer, tweak func(*zap.Config), opts ...zap.Option) (logr.Logger, func()) {
	config := zap.Config{
		Level:    globalLevel,
		Encoding: encoding,
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey:    "message",
			LevelKey:      "level",
			TimeKey:       "timestamp",
			NameKey:       "logger",
			CallerKey:     "caller",
			FunctionKey:   zapcore.OmitKey,
			StacktraceKey: "stacktrace",
			LineEnding:    zapcore.DefaultLineEnding,
			EncodeLevel:   encodeLevel,
			// RFC 3339 with microseconds sorts lexically and is still easy to read.
			EncodeTime:       zapcore.TimeEncoderOfLayout(metav1.RFC3339Micro),
			EncodeDuration:   zapcore.StringDurationEncoder,
			EncodeCaller:     encodeCaller,
			ConsoleSeparator: "  ",
		},
	}
	if tweak != nil {
		tweak(&config)
	}

	encoder := zapcore.NewJSONEncoder(config.EncoderConfig)
	if config.Encoding == "console" {
		encoder = zapcore.NewConsoleEncoder(config.EncoderConfig)
	}

	// Stack traces are attached to errors only when tracing. Options from tests come last and win.
	allOpts := append([]zap.Option{zap.AddCaller(), zap.AddStacktrace(traceErrors{}), zap.ErrorOutput(out)}, opts...)
	z := zap.New(zapcore.NewCore(encoder, out, config.Level), allOpts...)

	// The level encoder names the verbosity, so zapr's numeric "v" key is dropped.
	return zapr.NewLoggerWithOptions(z, zapr.LogInfoLevel("")), func() { _ = z.Sync() }
}

var _ zapcore.LevelEnabler = traceErrors{}

type traceErrors struct{}

func (traceErrors) Enabled(l zapcore.Level) bool {
	return l >= zapcore.ErrorLevel && Enabled(LevelTrace)
}

func encodeLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	if name := levelName(l); name != "" {
		enc.AppendString(string(name))
	}
}

func encodeCaller(caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(caller.String() + callerFunc(caller))
}

// callerFunc renders the calling function as "$pkg.Func", dropping the import path.
func callerFunc(caller zapcore.EntryCaller) string {
	fn := caller.Function
	if i := strings.LastIndexByte(fn, '/'); i != -1 {
		fn = fn[i+1:]
	}
	return "$" + fn
}

func humanDurationEncoder(d time.Duration, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(duration.HumanDuration(d))
}

func humanTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Local().Format(time.RFC1123))
}
