// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package pversion reports which code a password-hook binary was built from.
package pversion

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/coreos/go-semver/semver"
	k8sstrings "k8s.io/utils/strings"
)

// readBuildInfo is meant to be overwritten by tests.
//
//nolint:gochecknoglobals // these are swapped during unit tests.
var readBuildInfo = debug.ReadBuildInfo

// gitVersion is set using a linker flag
// -ldflags "-X 'go.pinniped.dev/passwordhook/internal/pversion.gitVersion=v1.2.3'"
// (or set for unit tests).
//
//nolint:gochecknoglobals // these are swapped during unit tests.
var gitVersion string

// Info is logged once at startup and printed by --version.
type Info struct {
	Version   string `json:"version"`
	Major     uint64 `json:"major"`
	Minor     uint64 `json:"minor"`
	Commit    string `json:"commit,omitempty"`
	BuildDate string `json:"buildDate,omitempty"`
	TreeState string `json:"treeState"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

func (i Info) String() string {
	return fmt.Sprintf("password-hook %s (commit %s, %s, %s)", i.Version, k8sstrings.ShortenString(i.Commit, 8), i.GoVersion, i.Platform)
}

// Get reads the version from the linker flag and the VCS settings that the go toolchain stamps into the binary.
func Get() Info {
	info := Info{
		Version:   "v0.0.0",
		TreeState: "dirty",
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}

	if v, err := semver.NewVersion(strings.TrimPrefix(gitVersion, "v")); err == nil {
		info.Version = "v" + v.String()
		info.Major = uint64(v.Major) //nolint:gosec // semver never parses negative numbers
		info.Minor = uint64(v.Minor) //nolint:gosec // semver never parses negative numbers
	}

	if buildInfo, ok := readBuildInfo(); ok {
		for _, setting := range buildInfo.Settings {
			switch setting.Key {
			case "vcs.revision":
				info.Commit = setting.Value
			case "vcs.time":
				info.BuildDate = setting.Value
			case "vcs.modified":
				if setting.Value == "false" {
					info.TreeState = "clean"
				}
			}
		}
	}

	if info.Version == "v0.0.0" && info.Commit != "" {
		info.Version += fmt.Sprintf("-%s-%s", k8sstrings.ShortenString(info.Commit, 8), info.TreeState)
	}

	return info
}
