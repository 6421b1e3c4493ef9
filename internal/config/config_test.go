// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go.pinniped.dev/passwordhook/internal/here"
	"go.pinniped.dev/passwordhook/internal/plog"
)

func TestLoad(t *testing.T) {
	caBundlePath := here.File(t, "ca.pem", "not parsed here")

	requiredEnv := []string{
		"LDAP_URL=ldaps://ldap.example.com",
		"LDAP_BASE_DN=dc=example,dc=com",
		"LDAP_BIND_DN=cn=svc,dc=example,dc=com",
		"LDAP_BIND_PASSWORD=svc-password",
		"AUTH_SECRET=s3cret",
	}

	tests := []struct {
		name       string
		yaml       string
		env        []string
		wantConfig *Config
		wantError  string
	}{
		{
			name: "env only with defaults",
			env:  requiredEnv,
			wantConfig: &Config{
				LDAP: LDAP{
					URL:            "ldaps://ldap.example.com",
					BaseDN:         "dc=example,dc=com",
					BindDN:         "cn=svc,dc=example,dc=com",
					BindPassword:   "svc-password",
					DialTimeout:    10 * time.Second,
					RequestTimeout: 30 * time.Second,
				},
				Auth:   Auth{Secret: "s3cret"},
				Server: Server{Port: 8080, MetricsEnabled: true},
				Log:    plog.LogSpec{Level: plog.LevelInfo, Format: plog.FormatJSON},
			},
		},
		{
			name: "file only with everything set",
			yaml: here.Docf(`
				ldap:
				  url: ldap.example.com:3890
				  baseDN: ou=people,dc=example,dc=com
				  bindDN: cn=svc,dc=example,dc=com
				  bindPassword: from-file
				  caBundlePath: %s
				  startTLS: true
				  dialTimeout: 2s
				  requestTimeout: 1m
				auth:
				  secret: file-secret
				server:
				  port: 9090
				  metricsEnabled: false
				log:
				  level: debug
				  format: text
			`, caBundlePath),
			wantConfig: &Config{
				LDAP: LDAP{
					URL:            "ldap.example.com:3890",
					BaseDN:         "ou=people,dc=example,dc=com",
					BindDN:         "cn=svc,dc=example,dc=com",
					BindPassword:   "from-file",
					CABundlePath:   caBundlePath,
					StartTLS:       true,
					DialTimeout:    2 * time.Second,
					RequestTimeout: time.Minute,
				},
				Auth:   Auth{Secret: "file-secret"},
				Server: Server{Port: 9090, MetricsEnabled: false},
				Log:    plog.LogSpec{Level: plog.LevelDebug, Format: plog.FormatText},
			},
		},
		{
			name: "env overrides file",
			yaml: here.Doc(`
				ldap:
				  url: ldap://from-file
				  baseDN: dc=file
				  bindDN: cn=file
				  bindPassword: file
				auth:
				  secret: file-secret
				server:
				  port: 9090
			`),
			env: []string{
				"AUTH_SECRET=env-secret",
				"PORT=9443",
				"LDAP_START_TLS=true",
				"LDAP_REQUEST_TIMEOUT=5s",
				"LOG_LEVEL=info",
				"SOMETHING_ELSE=ignored",
			},
			wantConfig: &Config{
				LDAP: LDAP{
					URL:            "ldap://from-file",
					BaseDN:         "dc=file",
					BindDN:         "cn=file",
					BindPassword:   "file",
					StartTLS:       true,
					DialTimeout:    10 * time.Second,
					RequestTimeout: 5 * time.Second,
				},
				Auth:   Auth{Secret: "env-secret"},
				Server: Server{Port: 9443, MetricsEnabled: true},
				Log:    plog.LogSpec{Level: plog.LevelInfo, Format: plog.FormatJSON},
			},
		},
		{
			name:      "nothing set",
			wantError: "validate config: missing required settings: LDAP_URL, LDAP_BASE_DN, LDAP_BIND_DN, LDAP_BIND_PASSWORD, AUTH_SECRET",
		},
		{
			name: "some missing",
			env: []string{
				"LDAP_BASE_DN=dc=example,dc=com",
				"LDAP_BIND_DN=cn=svc,dc=example,dc=com",
				"LDAP_BIND_PASSWORD=svc-password",
			},
			wantError: "validate config: missing required settings: LDAP_URL, AUTH_SECRET",
		},
		{
			name:      "empty secret",
			env:       append(requiredEnv[:4:4], "AUTH_SECRET="),
			wantError: "validate config: missing required settings: AUTH_SECRET",
		},
		{
			name:      "bad url scheme",
			env:       append([]string{"LDAP_URL=https://ldap.example.com"}, requiredEnv[1:]...),
			wantError: "validate config: invalid settings: LDAP_URL (must be ldap://host[:port], ldaps://host[:port] or host[:port])",
		},
		{
			name:      "url with path",
			env:       append([]string{"LDAP_URL=ldap://ldap.example.com/dc=example"}, requiredEnv[1:]...),
			wantError: "validate config: invalid settings: LDAP_URL (must be ldap://host[:port], ldaps://host[:port] or host[:port])",
		},
		{
			name:      "zero timeout and bad port",
			env:       append(append([]string{}, requiredEnv...), "LDAP_DIAL_TIMEOUT=0s", "PORT=70000"),
			wantError: "validate config: invalid settings: LDAP_DIAL_TIMEOUT (must be greater than 0), PORT (must be between 1 and 65535)",
		},
		{
			name:      "missing and invalid together",
			env:       []string{"LDAP_URL=ftp://x", "LDAP_BASE_DN=dc=x", "LDAP_BIND_DN=cn=x", "LDAP_BIND_PASSWORD=x"},
			wantError: "validate config: missing required settings: AUTH_SECRET; invalid settings: LDAP_URL (must be ldap://host[:port], ldaps://host[:port] or host[:port])",
		},
		{
			name:      "ca bundle does not exist",
			env:       append(append([]string{}, requiredEnv...), "LDAP_CA_BUNDLE_PATH=/does/not/exist.pem"),
			wantError: "validate config: invalid settings: LDAP_CA_BUNDLE_PATH (file does not exist)",
		},
		{
			name:      "bad duration",
			env:       append(append([]string{}, requiredEnv...), "LDAP_DIAL_TIMEOUT=soon"),
			wantError: "decode config:",
		},
		{
			name: "warning level can be chosen explicitly",
			env:  append(append([]string{}, requiredEnv...), "LOG_LEVEL=warning"),
			wantConfig: &Config{
				LDAP: LDAP{
					URL:            "ldaps://ldap.example.com",
					BaseDN:         "dc=example,dc=com",
					BindDN:         "cn=svc,dc=example,dc=com",
					BindPassword:   "svc-password",
					DialTimeout:    10 * time.Second,
					RequestTimeout: 30 * time.Second,
				},
				Auth:   Auth{Secret: "s3cret"},
				Server: Server{Port: 8080, MetricsEnabled: true},
				Log:    plog.LogSpec{Level: plog.LevelWarning, Format: plog.FormatJSON},
			},
		},
		{
			name:      "bad log level",
			env:       append(append([]string{}, requiredEnv...), "LOG_LEVEL=loud"),
			wantError: "decode config:",
		},
		{
			name:      "bad log format",
			env:       append(append([]string{}, requiredEnv...), "LOG_FORMAT=xml"),
			wantError: "decode config:",
		},
		{
			name:      "bad yaml",
			yaml:      "ldap: [",
			wantError: "read config file",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var path string
			if len(tt.yaml) > 0 {
				path = here.File(t, "config.yaml", tt.yaml)
			}

			config, err := load(path, func() []string { return tt.env })

			if len(tt.wantError) > 0 {
				require.ErrorContains(t, err, tt.wantError)
				require.Nil(t, config)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.wantConfig, config)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorContains(t, err, "read config file")
}
