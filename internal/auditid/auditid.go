// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package auditid gives every request an ID that is returned in the Audit-ID response header
// and attached to the request's log lines, so one password import can be traced end to end.
package auditid

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// HeaderAuditID is both the response header and the request header a proxy may use to pass its own ID along.
const HeaderAuditID = "Audit-ID"

type contextKey struct{}

// NewRequestWithAuditID returns r with id stored in its context.
func NewRequestWithAuditID(r *http.Request, id string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), contextKey{}, id))
}

// FromContext returns the ID of the request that ctx belongs to, or the empty string.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

// WithAuditID assigns the ID before calling handler. A UUID supplied by the caller is kept,
// anything else is replaced by a new random one so that arbitrary header text never reaches the logs.
func WithAuditID(handler http.Handler) http.Handler {
	return withAuditID(handler, uuid.NewString)
}

func withAuditID(handler http.Handler, newID func() string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderAuditID)
		if parsed, err := uuid.Parse(id); err == nil {
			id = parsed.String()
		} else {
			id = newID()
		}

		w.Header().Set(HeaderAuditID, id)
		handler.ServeHTTP(w, NewRequestWithAuditID(r, id))
	})
}
