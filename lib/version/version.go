// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/bureau-foundation/anveksha/lib/binhash"
)

// Overridden with -ldflags -X.
var (
	GitCommit = "unknown"
	GitDirty  = "false"
	BuildTime = "unknown"
	Version   = "0.1.0-dev"
)

// Build is the resolved build stamp.
type Build struct {
	Version string
	Commit  string
	Dirty   bool
	Time    string
}

// Current merges the linker-injected values with the VCS stamp the Go
// toolchain embeds. Linker values win when set.
func Current() Build {
	build := Build{
		Version: Version,
		Commit:  GitCommit,
		Dirty:   GitDirty == "true",
		Time:    BuildTime,
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return build
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if build.Commit == "unknown" && len(setting.Value) >= 7 {
				build.Commit = setting.Value[:7]
			}
		case "vcs.time":
			if build.Time == "unknown" {
				build.Time = setting.Value
			}
		case "vcs.modified":
			if GitCommit == "unknown" && setting.Value == "true" {
				build.Dirty = true
			}
		}
	}
	return build
}

// String formats the stamp as "0.1.0-dev (abc1234-dirty, 2026-03-01T09:00:00Z)".
func (b Build) String() string {
	var commit strings.Builder
	commit.WriteString(b.Commit)
	if b.Dirty {
		commit.WriteString("-dirty")
	}
	return fmt.Sprintf("%s (%s, %s)", b.Version, commit.String(), b.Time)
}

// Info is Current().String().
func Info() string { return Current().String() }

// Full appends the toolchain and target platform to Info.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// SelfDigest hashes the running executable with BLAKE3.
func SelfDigest() (binhash.Digest, error) {
	path, err := os.Executable()
	if err != nil {
		return binhash.Digest{}, fmt.Errorf("locating executable: %w", err)
	}
	return binhash.HashFile(path)
}
