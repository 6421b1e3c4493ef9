// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"go.pinniped.dev/passwordhook/internal/plog"
)

const knownGoodUsage = `
password-hook answers Okta password import inline hooks by checking
the submitted credential against an LDAP directory.

Usage:
  password-hook [flags]

Flags:
  -c, --config string     path to an optional YAML configuration file, environment variables take precedence
  -h, --help              help for password-hook
      --log-level level   overrides LOG_LEVEL, one of warning, info, debug, trace or all
      --version           print the version and exit
`

func TestCommand(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		wantErr      string
		wantStdout   string
		wantConfig   string
		wantLogLevel *plog.LogLevel
	}{
		{
			name: "NoArgsSucceeds",
			args: []string{},
		},
		{
			name:       "Usage",
			args:       []string{"-h"},
			wantStdout: knownGoodUsage,
		},
		{
			name:    "OneArgFails",
			args:    []string{"tuna"},
			wantErr: `unknown command "tuna" for "password-hook"`,
		},
		{
			name:       "ShortConfigFlagSucceeds",
			args:       []string{"-c", "some/path/to/config.yaml"},
			wantConfig: "some/path/to/config.yaml",
		},
		{
			name:       "LongConfigFlagSucceeds",
			args:       []string{"--config", "some/path/to/config.yaml"},
			wantConfig: "some/path/to/config.yaml",
		},
		{
			name: "OneArgWithConfigFlagFails",
			args: []string{
				"--config", "some/path/to/config.yaml",
				"tuna",
			},
			wantErr: `unknown command "tuna" for "password-hook"`,
		},
		{
			name:         "LogLevelFlag",
			args:         []string{"--log-level", "debug"},
			wantLogLevel: ptr(plog.LevelDebug),
		},
		{
			name:         "LogLevelFlagWarningIsTheDefaultLevel",
			args:         []string{"--log-level", "warning"},
			wantLogLevel: ptr(plog.LevelWarning),
		},
		{
			name:    "LogLevelFlagIsValidated",
			args:    []string{"--log-level", "loud"},
			wantErr: `invalid argument "loud" for "--log-level" flag: must be one of warning, info, debug, trace or all`,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			stdout := bytes.NewBuffer([]byte{})
			stderr := bytes.NewBuffer([]byte{})

			a := New(context.Background(), test.args, stdout, stderr)
			a.cmd.RunE = func(cmd *cobra.Command, args []string) error {
				return nil
			}
			err := a.Run()
			if test.wantErr != "" {
				require.EqualError(t, err, test.wantErr)
			} else {
				require.NoError(t, err)
			}
			if test.wantStdout != "" {
				require.Equal(t, strings.TrimSpace(test.wantStdout), strings.TrimSpace(stdout.String()), cmp.Diff(test.wantStdout, stdout.String()))
			}
			require.Equal(t, test.wantConfig, a.configPath)
			if test.wantLogLevel != nil {
				require.True(t, a.logLevel.set)
				require.Equal(t, *test.wantLogLevel, a.logLevel.level)
			} else {
				require.False(t, a.logLevel.set)
			}
		})
	}
}

func TestVersionFlag(t *testing.T) {
	stdout := bytes.NewBuffer([]byte{})
	err := New(context.Background(), []string{"--version"}, stdout, &bytes.Buffer{}).Run()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(stdout.String(), "password-hook v"), stdout.String())
	require.True(t, strings.HasSuffix(stdout.String(), ")\n"), stdout.String())
}

func ptr[T any](v T) *T {
	return &v
}
