// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package plog implements a thin layer over logr and zap to help enforce our logging convention.
// Logs are always structured as a constant message with key and value pairs of related metadata.
//
// The logging levels in order of increasing verbosity are:
// error, warning, info, debug, trace and all.
//
// error and warning logs are always emitted (there is no way for the end user to disable them),
// and thus should be used sparingly.  Ideally, logs at these levels should be actionable.
//
// info should be reserved for "nice to know" information, such as the username of each
// password import attempt and its outcome.  It should be possible to run the hook at the
// info log level with no performance degradation due to high log volume.
//
// debug should be used for information targeted at developers and to aid in support cases, such as
// the DNs returned by directory searches.  Care must be taken at this level to not leak any secrets
// into the log stream.  Passwords must never be logged at any level.
//
// trace should be used to log information related to timing.
//
// all is reserved for the most verbose information.  This level is unfit for production use.
package plog
