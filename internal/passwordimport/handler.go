// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package passwordimport implements the Okta password import inline hook endpoint.
//
// A request is answered in one of four ways:
//
//   - 403 with a plain text body when the Authorization header is not the shared secret,
//   - 400 with a JSON error when the body does not carry a username and password,
//   - 200 with the VERIFIED command when the directory accepted the password,
//   - 204 with an empty body for every other outcome, including directory failures.
//
// The directory is only contacted after the first two checks have passed.
package passwordimport

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"

	"k8s.io/utils/clock"

	"go.pinniped.dev/passwordhook/internal/auditid"
	"go.pinniped.dev/passwordhook/internal/httputil/httperr"
	"go.pinniped.dev/passwordhook/internal/metrics"
	"go.pinniped.dev/passwordhook/internal/okta"
	"go.pinniped.dev/passwordhook/internal/plog"
	"go.pinniped.dev/passwordhook/internal/upstreamldap"
)

const (
	// Path is where Okta is configured to send the hook.
	Path = "/passwordImport"

	// maxBodyBytes is far larger than any real inline hook request.
	maxBodyBytes = 1 << 20

	unauthorizedBody   = "Unauthorized"
	invalidPayloadBody = "Invalid payload"
)

// CredentialValidator is implemented by *upstreamldap.Provider.
type CredentialValidator interface {
	ValidateCredential(ctx context.Context, username, password string) upstreamldap.Result
}

type handler struct {
	secret    []byte
	validator CredentialValidator
	metrics   metrics.Recorder
	logger    plog.Logger
	clock     clock.PassiveClock
}

// NewHandler returns the handler for POST /passwordImport. Method and path matching is left to the router.
func NewHandler(secret string, validator CredentialValidator, recorder metrics.Recorder, logger plog.Logger) http.Handler {
	return newHandler(secret, validator, recorder, logger, clock.RealClock{})
}

func newHandler(secret string, validator CredentialValidator, recorder metrics.Recorder, logger plog.Logger, c clock.PassiveClock) http.Handler {
	h := &handler{
		secret:    []byte(secret),
		validator: validator,
		metrics:   recorder,
		logger:    logger,
		clock:     c,
	}
	return httperr.HandlerFunc(h.serve)
}

func (h *handler) serve(w http.ResponseWriter, r *http.Request) error {
	logger := h.logger.WithValues("auditID", auditid.FromContext(r.Context()))

	// must run before anything looks at the body
	if !h.authorized(r) {
		h.metrics.RecordRequest(metrics.RequestUnauthorized)
		logger.Info("rejecting password import request with a missing or incorrect shared secret",
			"remoteAddr", r.RemoteAddr)
		return httperr.New(http.StatusForbidden, unauthorizedBody)
	}

	username, password, err := okta.DecodeCredential(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.metrics.RecordRequest(metrics.RequestInvalidPayload)
		logger.InfoErr("rejecting password import request with an invalid payload", err)
		return httperr.WrapJSON(http.StatusBadRequest, okta.ErrorResponse{Error: invalidPayloadBody}, err)
	}

	logger.Info("attempting directory authentication", "username", username)

	start := h.clock.Now()
	result := h.validator.ValidateCredential(r.Context(), username, password)
	h.metrics.RecordValidation(result.Outcome, h.clock.Since(start))

	if !result.Verified() {
		h.metrics.RecordRequest(metrics.RequestNotVerified)
		logger.Info("password import credential not verified", "username", username, "outcome", result.Outcome)
		respondNotVerified(w)
		return nil
	}

	h.metrics.RecordRequest(metrics.RequestVerified)
	logger.Info("password import credential verified", "username", username)
	return respondVerified(w)
}

// authorized compares the raw header value to the secret. There is no scheme prefix such as "Bearer".
func (h *handler) authorized(r *http.Request) bool {
	values, ok := r.Header["Authorization"]
	if !ok || len(values) != 1 {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(values[0]), h.secret) == 1
}

func respondVerified(w http.ResponseWriter) error {
	body, err := json.Marshal(okta.VerifiedResponse())
	if err != nil {
		return fmt.Errorf("encode password import response: %w", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
	return nil
}

func respondNotVerified(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
