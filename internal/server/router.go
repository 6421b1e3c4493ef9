// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"go.pinniped.dev/passwordhook/internal/auditid"
	"go.pinniped.dev/passwordhook/internal/httputil/requestlogger"
	"go.pinniped.dev/passwordhook/internal/httputil/securityheader"
	"go.pinniped.dev/passwordhook/internal/metrics"
	"go.pinniped.dev/passwordhook/internal/passwordimport"
	"go.pinniped.dev/passwordhook/internal/plog"
)

// newRouter serves /metrics only when metricsHandler is not nil.
func newRouter(
	secret string,
	validator passwordimport.CredentialValidator,
	recorder metrics.Recorder,
	metricsHandler http.Handler,
) http.Handler {
	r := mux.NewRouter()

	r.Handle(passwordimport.Path,
		passwordimport.NewHandler(secret, validator, recorder, plog.New().WithName("passwordimport")),
	).Methods(http.MethodPost)

	r.HandleFunc("/healthz", healthz).Methods(http.MethodGet, http.MethodHead)

	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler).Methods(http.MethodGet)
	}

	var handler http.Handler = r
	handler = securityheader.Wrap(handler)
	handler = requestlogger.WithHTTPRequestLogging(handler, plog.New().WithName("http"))
	handler = auditid.WithAuditID(handler) // outermost so the request logger sees the ID
	return handler
}

// healthz only reports that the process is serving. It never contacts the directory.
func healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
