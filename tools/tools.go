// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

//go:build tools

// Package tools exists to work around a Go modules oddity and depend on some tool versions.
package tools

import (
	_ "go.uber.org/mock/mockgen"
)
