// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package securityheader sets the response headers every password-hook response carries.
package securityheader

import (
	"net/http"
)

// apiHeaders suit a JSON API that no browser should render, frame or cache.
// Verification answers in particular must never be replayed from a cache.
//
//nolint:gochecknoglobals
var apiHeaders = [...]struct{ name, value string }{
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"X-Frame-Options", "DENY"},
	{"X-Content-Type-Options", "nosniff"},
	{"Referrer-Policy", "no-referrer"},
	{"Cache-Control", "no-store"},
}

// Wrap sets the headers before the wrapped handler runs, so the handler may still override them.
func Wrap(wrapped http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for _, header := range apiHeaders {
			h.Set(header.name, header.value)
		}
		wrapped.ServeHTTP(w, r)
	})
}
