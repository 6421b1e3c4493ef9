// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package constable provides an error type that can be declared as a constant,
// which makes sentinel errors immutable and comparable with errors.Is.
package constable

var _ error = Error("")

// Error is a string that satisfies the error interface.
type Error string

func (e Error) Error() string {
	return string(e)
}
