// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package plog

import (
	"context"
	"sync/atomic"

	"github.com/go-logr/logr"
	"go.uber.org/zap"
)

// sink is what every Logger writes through. It is replaced as a whole when the configuration changes,
// so request handlers that are already logging never observe a half-updated logger.
type sink struct {
	logger logr.Logger
	flush  func()
}

//nolint:gochecknoglobals
var (
	globalLevel = zap.NewAtomicLevelAt(0)
	globalSink  atomic.Pointer[sink]
)

//nolint:gochecknoinits
func init() {
	// JSON at the warning level until the configuration has been read.
	installSink(newLogr(context.Background(), FormatJSON))
}

func installSink(logger logr.Logger, flush func()) {
	globalSink.Store(&sink{logger: logger, flush: flush})
}

func currentSink() *sink {
	return globalSink.Load()
}

// Setup returns a function that flushes buffered log entries. main should defer it.
func Setup() func() {
	return func() {
		currentSink().flush()
	}
}
