// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package main is the password-hook binary.
package main

import (
	"go.pinniped.dev/passwordhook/internal/server"
)

func main() {
	server.Main()
}
