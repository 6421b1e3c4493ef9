// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package httperr contains some helpers for nicer error handling in http.Handler implementations.
package httperr

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Responder represents an error that can emit a useful HTTP error response to an http.ResponseWriter.
type Responder interface {
	error
	Respond(http.ResponseWriter)
}

// New returns a Responder that emits the given HTTP status code with msg as a plain text body.
func New(code int, msg string) error {
	return httpErr{code: code, msg: msg}
}

// Newf returns a Responder that emits the given HTTP status code and fmt.Sprintf formatted message.
func Newf(code int, format string, args ...any) error {
	return httpErr{code: code, msg: fmt.Sprintf(format, args...)}
}

// Wrap returns a Responder that emits the given HTTP status code and message, and also wraps an internal error.
// Only msg is sent to the client.
func Wrap(code int, msg string, cause error) error {
	return httpErr{code: code, msg: msg, cause: cause}
}

// WrapJSON is like Wrap, but the client receives body encoded as JSON.
func WrapJSON(code int, body any, cause error) error {
	return jsonErr{code: code, body: body, cause: cause}
}

type httpErr struct {
	code  int
	msg   string
	cause error
}

func (e httpErr) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

func (e httpErr) Respond(w http.ResponseWriter) {
	// forcing text/plain and nosniff prevents content sniffing
	h := w.Header()
	h.Del("Content-Length")
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(e.code)
	_, _ = w.Write([]byte(e.msg))
}

func (e httpErr) Unwrap() error {
	return e.cause
}

type jsonErr struct {
	code  int
	body  any
	cause error
}

func (e jsonErr) Error() string {
	msg := http.StatusText(e.code)
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

func (e jsonErr) Respond(w http.ResponseWriter) {
	data, err := json.Marshal(e.body)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.code)
	_, _ = w.Write(data)
}

func (e jsonErr) Unwrap() error {
	return e.cause
}

// HandlerFunc is like http.HandlerFunc, but with a function signature that allows easier error handling.
type HandlerFunc func(http.ResponseWriter, *http.Request) error

func (f HandlerFunc) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch err := f(w, r).(type) {
	case nil:
		return
	case Responder:
		err.Respond(w)
	default:
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
