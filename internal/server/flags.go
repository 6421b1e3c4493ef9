// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"github.com/spf13/pflag"

	"go.pinniped.dev/passwordhook/internal/constable"
	"go.pinniped.dev/passwordhook/internal/plog"
)

const errInvalidLogLevel = constable.Error("must be one of warning, info, debug, trace or all")

var _ pflag.Value = (*logLevelFlag)(nil)

// logLevelFlag remembers whether it was set so that an unset flag does not clobber LOG_LEVEL.
type logLevelFlag struct {
	level plog.LogLevel
	set   bool
}

func (f *logLevelFlag) String() string {
	return string(f.level)
}

func (f *logLevelFlag) Set(s string) error {
	switch level := plog.LogLevel(s); level {
	case "warning":
		f.level = plog.LevelWarning
	case plog.LevelWarning, plog.LevelInfo, plog.LevelDebug, plog.LevelTrace, plog.LevelAll:
		f.level = level
	default:
		return errInvalidLogLevel
	}
	f.set = true
	return nil
}

func (f *logLevelFlag) Type() string {
	return "level"
}
