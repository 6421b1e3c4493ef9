// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package here turns indented raw string literals into test fixtures: config
// files, expected log output and request bodies.
package here

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MakeNowJust/heredoc/v2"
)

// Doc strips the indentation shared by every line of s. YAML forbids tabs, so
// any tab left over afterwards is expanded to four spaces.
func Doc(s string) string {
	return untab(heredoc.Doc(s))
}

// Docf is Doc with fmt.Sprintf style arguments.
func Docf(raw string, args ...any) string {
	return untab(heredoc.Docf(raw, args...))
}

// File writes Doc(raw) to name inside a fresh temporary directory and returns its path.
func File(t testing.TB, name, raw string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(Doc(raw)), 0o600); err != nil {
		t.Fatalf("could not write %s: %v", path, err)
	}
	return path
}

func untab(s string) string {
	return strings.ReplaceAll(s, "\t", "    ")
}
