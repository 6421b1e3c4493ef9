// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package plog

import (
	"bytes"
	"context"
	"io"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"k8s.io/utils/clock"
	clocktesting "k8s.io/utils/clock/testing"
)

// testLogTime is the timestamp on every entry written by TestLogger and TestConsoleLogger.
const testLogTime = "2099-08-08T13:57:36.123456789Z"

type overridesKey struct{}

type zapOverrides struct {
	w     io.Writer
	tweak func(*zap.Config)
	opts  []zap.Option
}

// AddZapOverridesToContext returns a context that makes ValidateAndSetLogLevelAndFormatGlobally
// write to w on fakeClock's time. A non-nil tweak replaces the format specific encoder settings.
func AddZapOverridesToContext(
	ctx context.Context,
	t *testing.T,
	w io.Writer,
	tweak func(*zap.Config),
	fakeClock *clocktesting.FakeClock,
	opts ...zap.Option,
) context.Context {
	t.Helper()
	require.NotNil(t, fakeClock, "fakeClock is required")

	opts = append(opts, zap.WithClock(ZapClock(fakeClock)))
	return context.WithValue(ctx, overridesKey{}, &zapOverrides{w: w, tweak: tweak, opts: opts})
}

// TestLogger returns a Logger that writes every level as JSON lines into the returned buffer.
func TestLogger(t *testing.T) (Logger, *bytes.Buffer) {
	t.Helper()

	var buf bytes.Buffer
	return withTestSink(t, &buf, FormatJSON), &buf
}

// TestConsoleLogger is TestLogger for the text format.
func TestConsoleLogger(t *testing.T, w io.Writer) Logger {
	t.Helper()

	return withTestSink(t, w, FormatText)
}

func withTestSink(t *testing.T, w io.Writer, format LogFormat) Logger {
	t.Helper()

	s := testZapr(t, w, format).GetSink()
	return New().withLogrMod(func(l logr.Logger) logr.Logger {
		return l.WithSink(s)
	})
}

func testZapr(t *testing.T, w io.Writer, format LogFormat) logr.Logger {
	t.Helper()

	now, err := time.Parse(time.RFC3339Nano, testLogTime)
	require.NoError(t, err)

	text := format == FormatText
	tweak := func(c *zap.Config) {
		// everything is logged, regardless of the global level
		c.Level = zap.NewAtomicLevelAt(math.MinInt8)

		// line numbers change with every edit, so they are masked
		c.EncoderConfig.EncodeCaller = func(caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
			path := caller.TrimmedPath()
			if i := strings.LastIndexByte(path, ':'); i != -1 {
				path = path[:i+1] + "<line>"
			}
			if !text {
				path += callerFunc(caller)
			}
			enc.AppendString(path)
		}

		if text {
			c.EncoderConfig.LevelKey = zapcore.OmitKey
			c.EncoderConfig.EncodeTime = humanTimeEncoder
			c.EncoderConfig.EncodeDuration = humanDurationEncoder
		}
	}

	ctx := AddZapOverridesToContext(context.Background(), t, w, tweak,
		clocktesting.NewFakeClock(now),
		zap.AddStacktrace(neverEnabled{}),
	)

	// writes are unbuffered, so there is nothing to flush
	logger, _ := newLogr(ctx, format)
	return logger
}

var _ zapcore.Clock = zapClock{}

type zapClock struct {
	clock clock.Clock
}

func (c zapClock) Now() time.Time {
	return c.clock.Now()
}

func (c zapClock) NewTicker(d time.Duration) *time.Ticker {
	return &time.Ticker{C: c.clock.Tick(d)}
}

// ZapClock adapts a k8s clock, usually a fake one, to zap.
func ZapClock(c clock.Clock) zapcore.Clock {
	return zapClock{clock: c}
}

type neverEnabled struct{}

func (neverEnabled) Enabled(zapcore.Level) bool { return false }
