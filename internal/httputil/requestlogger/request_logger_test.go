// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package requestlogger

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"

	"go.pinniped.dev/passwordhook/internal/auditid"
	"go.pinniped.dev/passwordhook/internal/plog"
	"go.pinniped.dev/passwordhook/internal/testutil"
)

func TestWithHTTPRequestLogging(t *testing.T) {
	tests := []struct {
		name        string
		path        string
		handler     http.HandlerFunc
		wantStatus  float64
		wantLatency string
		wantNoLogs  bool
	}{
		{
			name: "explicit status",
			path: "/passwordImport",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			},
			wantStatus:  http.StatusNoContent,
			wantLatency: "1.5s",
		},
		{
			name: "status from first write",
			path: "/passwordImport",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("{}"))
				w.WriteHeader(http.StatusTeapot) // superfluous, ignored by net/http and by us
			},
			wantStatus:  http.StatusOK,
			wantLatency: "1.5s",
		},
		{
			name:        "nothing written",
			path:        "/passwordImport",
			handler:     func(w http.ResponseWriter, r *http.Request) {},
			wantStatus:  http.StatusOK,
			wantLatency: "1.5s",
		},
		{
			name: "health checks are not logged",
			path: "/healthz",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("ok"))
			},
			wantNoLogs: true,
		},
		{
			name: "metrics scrapes are not logged",
			path: "/metrics",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("# metrics"))
			},
			wantNoLogs: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, log := plog.TestLogger(t)
			fakeClock := clocktesting.NewFakeClock(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))

			handler := withHTTPRequestLogging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fakeClock.Step(1500 * time.Millisecond)
				tt.handler(w, r)
			}), logger, fakeClock)

			req := httptest.NewRequest(http.MethodPost, tt.path, nil)
			req.Header.Set("User-Agent", "some-user-agent")
			req.TLS = &tls.ConnectionState{ServerName: "some-sni-server-name"}
			req = auditid.NewRequestWithAuditID(req, "some-audit-id")

			handler.ServeHTTP(httptest.NewRecorder(), req)

			if tt.wantNoLogs {
				require.Empty(t, log.String())
				return
			}

			received := testutil.LogLinesWithMessage(t, log, "HTTP request received")
			require.Len(t, received, 1)
			require.Equal(t, "some-audit-id", received[0]["auditID"])
			require.Equal(t, http.MethodPost, received[0]["method"])
			require.Equal(t, tt.path, received[0]["path"])
			require.Equal(t, "some-user-agent", received[0]["userAgent"])
			require.Equal(t, "some-sni-server-name", received[0]["serverName"])
			require.Equal(t, "192.0.2.1:1234", received[0]["remoteAddr"])

			completed := testutil.LogLinesWithMessage(t, log, "HTTP request completed")
			require.Len(t, completed, 1)
			require.Equal(t, "some-audit-id", completed[0]["auditID"])
			require.Equal(t, tt.wantStatus, completed[0]["responseStatus"])
			require.Equal(t, tt.wantLatency, completed[0]["latency"])
		})
	}
}

func TestWrappedWriterKeepsFlusher(t *testing.T) {
	logger, _ := plog.TestLogger(t)
	var isFlusher bool
	handler := WithHTTPRequestLogging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, isFlusher = w.(http.Flusher)
	}), logger)
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.True(t, isFlusher)
}
