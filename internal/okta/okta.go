// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package okta contains the wire types of the Okta password import inline hook.
package okta

import (
	"encoding/json"
	"errors"
	"io"

	"go.pinniped.dev/passwordhook/internal/constable"
)

const (
	// CommandTypeUpdate tells Okta to update the user's credential.
	CommandTypeUpdate = "com.okta.action.update"
	// CredentialVerified tells Okta to store the imported password.
	CredentialVerified = "VERIFIED"

	ErrInvalidPayload = constable.Error("username and password must be present as strings")
	ErrTrailingData   = constable.Error("request body must hold exactly one JSON value")
)

// PasswordImportRequest is the subset of the inline hook request that the hook reads.
// Leaves are pointers so that missing and null values can be told apart from empty strings.
type PasswordImportRequest struct {
	Data *struct {
		Context *struct {
			Credential *Credential `json:"credential"`
		} `json:"context"`
	} `json:"data"`
}

type Credential struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
}

// DecodeCredential reads a request body and returns the username and password.
// Any syntax error, data after the JSON object, missing object, null leaf or non-string leaf
// is reported as an error.
func DecodeCredential(body io.Reader) (username, password string, err error) {
	var req PasswordImportRequest
	dec := json.NewDecoder(body)
	if err := dec.Decode(&req); err != nil {
		return "", "", err
	}
	// only whitespace may follow the object
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return "", "", ErrTrailingData
	}

	if req.Data == nil || req.Data.Context == nil || req.Data.Context.Credential == nil {
		return "", "", ErrInvalidPayload
	}

	c := req.Data.Context.Credential
	if c.Username == nil || c.Password == nil {
		return "", "", ErrInvalidPayload
	}

	return *c.Username, *c.Password, nil
}

// PasswordImportResponse is only sent for verified credentials.
type PasswordImportResponse struct {
	Commands []Command `json:"commands"`
}

type Command struct {
	Type  string       `json:"type"`
	Value CommandValue `json:"value"`
}

type CommandValue struct {
	Credential string `json:"credential"`
}

// VerifiedResponse returns the body that tells Okta to accept the imported password.
func VerifiedResponse() PasswordImportResponse {
	return PasswordImportResponse{
		Commands: []Command{
			{Type: CommandTypeUpdate, Value: CommandValue{Credential: CredentialVerified}},
		},
	}
}

// ErrorResponse is the body of a 400 response.
type ErrorResponse struct {
	Error string `json:"error"`
}
