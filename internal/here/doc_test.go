// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package here

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sclevine/spec"
	"github.com/sclevine/spec/report"
	"github.com/stretchr/testify/require"
)

func TestDoc(t *testing.T) {
	spec.Run(t, "here.Doc", func(t *testing.T, when spec.G, it spec.S) {
		var r *require.Assertions

		it.Before(func() {
			r = require.New(t)
		})

		it("leaves single-line strings alone", func() {
			r.Equal("ldap.url: ldaps://ldap.example.com", Doc("ldap.url: ldaps://ldap.example.com"))
			r.Equal("  indented", Doc("  indented"))
		})

		it("removes the common indentation of all but the first line", func() {
			r.Equal(
				"attempting directory authentication\nusername=alice\noutcome=Verified",
				Doc(`attempting directory authentication
						username=alice
						outcome=Verified`),
			)
		})

		it("drops the leading newline and trailing indentation", func() {
			r.Equal(
				"---\nauth:\n  secret: s3cret\n",
				Doc(`
					---
					auth:
					  secret: s3cret
				`),
			)
		})

		when("the literal contains nested tabs", func() {
			it("turns each tab into four spaces", func() {
				r.Equal(
					"server:\n    port: 8080\n",
					Doc(`
						server:
							port: 8080
					`),
				)
			})
		})
	}, spec.Parallel(), spec.Report(report.Terminal{}))

	spec.Run(t, "here.Docf", func(t *testing.T, when spec.G, it spec.S) {
		var r *require.Assertions

		it.Before(func() {
			r = require.New(t)
		})

		it("formats after removing indentation", func() {
			r.Equal(
				"ldap:\n  url: ldap://127.0.0.1:10389\n",
				Docf(`
					ldap:
					  url: ldap://%s:%d
				`, "127.0.0.1", 10389),
			)
		})
	}, spec.Parallel(), spec.Report(report.Terminal{}))

	spec.Run(t, "here.File", func(t *testing.T, when spec.G, it spec.S) {
		it("writes the unindented literal to a private temp file", func() {
			path := File(t, "config.yaml", `
				auth:
				  secret: s3cret
			`)
			require.Equal(t, "config.yaml", filepath.Base(path))

			contents, err := os.ReadFile(path)
			require.NoError(t, err)
			require.Equal(t, "auth:\n  secret: s3cret\n", string(contents))

			info, err := os.Stat(path)
			require.NoError(t, err)
			require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
		})
	}, spec.Report(report.Terminal{}))
}
