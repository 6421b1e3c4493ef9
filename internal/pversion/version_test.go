// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package pversion

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	originalGitVersion := gitVersion
	t.Cleanup(func() {
		gitVersion = originalGitVersion
		readBuildInfo = debug.ReadBuildInfo
	})

	platform := fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)

	vcsSettings := func(modified string) func() (*debug.BuildInfo, bool) {
		return func() (*debug.BuildInfo, bool) {
			return &debug.BuildInfo{
				Settings: []debug.BuildSetting{
					{Key: "vcs.revision", Value: "0123456789abcdef"},
					{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
					{Key: "vcs.modified", Value: modified},
					{Key: "other", Value: "ignored"},
				},
			}, true
		}
	}

	tests := []struct {
		name          string
		gitVersion    string
		readBuildInfo func() (*debug.BuildInfo, bool)
		wantInfo      Info
		wantString    string
	}{
		{
			name:          "no build info and no version",
			readBuildInfo: func() (*debug.BuildInfo, bool) { return nil, false },
			wantInfo: Info{
				Version:   "v0.0.0",
				TreeState: "dirty",
				GoVersion: runtime.Version(),
				Platform:  platform,
			},
			wantString: fmt.Sprintf("password-hook v0.0.0 (commit , %s, %s)", runtime.Version(), platform),
		},
		{
			name:          "version from linker flag without leading v",
			gitVersion:    "9.8.7",
			readBuildInfo: vcsSettings("false"),
			wantInfo: Info{
				Version:   "v9.8.7",
				Major:     9,
				Minor:     8,
				Commit:    "0123456789abcdef",
				BuildDate: "2026-01-02T03:04:05Z",
				TreeState: "clean",
				GoVersion: runtime.Version(),
				Platform:  platform,
			},
			wantString: fmt.Sprintf("password-hook v9.8.7 (commit 01234567, %s, %s)", runtime.Version(), platform),
		},
		{
			name:          "version from linker flag with leading v and a pre-release",
			gitVersion:    "v1.2.3-rc.1",
			readBuildInfo: vcsSettings("true"),
			wantInfo: Info{
				Version:   "v1.2.3-rc.1",
				Major:     1,
				Minor:     2,
				Commit:    "0123456789abcdef",
				BuildDate: "2026-01-02T03:04:05Z",
				TreeState: "dirty",
				GoVersion: runtime.Version(),
				Platform:  platform,
			},
		},
		{
			name:          "unparsable version falls back to the commit",
			gitVersion:    "not-a-version",
			readBuildInfo: vcsSettings("false"),
			wantInfo: Info{
				Version:   "v0.0.0-01234567-clean",
				Commit:    "0123456789abcdef",
				BuildDate: "2026-01-02T03:04:05Z",
				TreeState: "clean",
				GoVersion: runtime.Version(),
				Platform:  platform,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gitVersion = tt.gitVersion
			readBuildInfo = tt.readBuildInfo

			got := Get()
			require.Equal(t, tt.wantInfo, got)
			if tt.wantString != "" {
				require.Equal(t, tt.wantString, got.String())
			}
		})
	}
}
