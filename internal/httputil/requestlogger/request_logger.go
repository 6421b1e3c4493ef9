// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package requestlogger logs one line when a request arrives and one when its response is complete.
package requestlogger

import (
	"net/http"
	"slices"
	"time"

	"github.com/felixge/httpsnoop"
	"k8s.io/utils/clock"

	"go.pinniped.dev/passwordhook/internal/auditid"
	"go.pinniped.dev/passwordhook/internal/plog"
)

// WithHTTPRequestLogging must be wrapped by auditid.WithAuditID so that the ID is available.
func WithHTTPRequestLogging(handler http.Handler, logger plog.Logger) http.Handler {
	return withHTTPRequestLogging(handler, logger, clock.RealClock{})
}

func withHTTPRequestLogging(handler http.Handler, logger plog.Logger, c clock.PassiveClock) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		rl := newRequestLogger(req, logger, c)

		rl.logRequestReceived()
		defer rl.logRequestComplete()

		handler.ServeHTTP(rl.wrap(w), req)
	})
}

type requestLogger struct {
	clock     clock.PassiveClock
	startTime time.Time

	statusRecorded bool
	status         int

	req       *http.Request
	userAgent string
	logger    plog.Logger
}

func newRequestLogger(req *http.Request, logger plog.Logger, c clock.PassiveClock) *requestLogger {
	return &requestLogger{
		req:       req,
		clock:     c,
		startTime: c.Now(),
		userAgent: req.UserAgent(), // cache this from the req to avoid any possibility of concurrent read/write problems with headers map
		logger:    logger.WithValues("auditID", auditid.FromContext(req.Context())),
	}
}

// internalPaths are polled by infrastructure and would drown out everything else.
func internalPaths() []string {
	return []string{
		"/healthz",
		"/metrics",
	}
}

func (rl *requestLogger) skip() bool {
	return slices.Contains(internalPaths(), rl.req.URL.Path)
}

func (rl *requestLogger) logRequestReceived() {
	if rl.skip() {
		return
	}

	r := rl.req
	rl.logger.Debug("HTTP request received",
		"proto", r.Proto,
		"method", r.Method,
		"host", r.Host,
		"serverName", sniServerName(r),
		"path", r.URL.Path,
		"userAgent", rl.userAgent,
		"remoteAddr", r.RemoteAddr,
	)
}

func (rl *requestLogger) logRequestComplete() {
	if rl.skip() {
		return
	}

	status := rl.status
	if !rl.statusRecorded {
		// nothing was written, net/http sends a 200 with an empty body
		status = http.StatusOK
	}

	rl.logger.Info("HTTP request completed",
		"method", rl.req.Method,
		"path", rl.req.URL.Path, // include the path again to make it easy to "grep -v healthz"
		"latency", rl.clock.Since(rl.startTime),
		"responseStatus", status,
	)
}

// wrap keeps the optional interfaces (Flusher, Hijacker, ReaderFrom, etc.) of w intact.
func (rl *requestLogger) wrap(w http.ResponseWriter) http.ResponseWriter {
	return httpsnoop.Wrap(w, httpsnoop.Hooks{
		WriteHeader: func(delegate httpsnoop.WriteHeaderFunc) httpsnoop.WriteHeaderFunc {
			return func(code int) {
				rl.recordStatus(code)
				delegate(code)
			}
		},
		Write: func(delegate httpsnoop.WriteFunc) httpsnoop.WriteFunc {
			return func(b []byte) (int, error) {
				rl.recordStatus(http.StatusOK) // default if WriteHeader hasn't been called
				return delegate(b)
			}
		},
	})
}

func (rl *requestLogger) recordStatus(status int) {
	if rl.statusRecorded {
		return
	}
	rl.status = status
	rl.statusRecorded = true
}

func sniServerName(req *http.Request) string {
	if req.TLS == nil {
		return ""
	}
	return req.TLS.ServerName
}
