// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package securityheader

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	})
	rec := httptest.NewRecorder()
	Wrap(handler).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/passwordImport", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, `{}`, rec.Body.String())
	require.Equal(t, http.Header{
		"Content-Security-Policy": []string{"default-src 'none'; frame-ancestors 'none'"},
		"Content-Type":            []string{"application/json"},
		"Referrer-Policy":         []string{"no-referrer"},
		"X-Content-Type-Options":  []string{"nosniff"},
		"X-Frame-Options":         []string{"DENY"},
		"Cache-Control":           []string{"no-store"},
	}, rec.Header())
}

func TestWrappedHandlerCanOverride(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "max-age=10")
		w.WriteHeader(http.StatusNoContent)
	})
	rec := httptest.NewRecorder()
	Wrap(handler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, "max-age=10", rec.Header().Get("Cache-Control"))
}
