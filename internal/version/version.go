// Package version reports the build version of serbridge.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
)

// Set at build time:
//
//	go build -ldflags="-X github.com/muurk/serbridge/internal/version.Version=v1.2.3 \
//	                   -X github.com/muurk/serbridge/internal/version.Commit=abc123"
//
// Unset values are filled from the embedded build info on first use.
var (
	Version = ""
	Commit  = ""
)

// Info describes the running binary
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

var resolveOnce sync.Once

func resolve() {
	resolveOnce.Do(func() {
		if info, ok := debug.ReadBuildInfo(); ok {
			Version, Commit = fromBuildInfo(info, Version, Commit)
		}
		if Version == "" {
			Version = "dev"
		}
		if Commit == "" {
			Commit = "unknown"
		}
	})
}

// fromBuildInfo fills version and commit from info where they are empty.
// go install records a module version; local builds only carry VCS data.
func fromBuildInfo(info *debug.BuildInfo, version, commit string) (string, string) {
	if version == "" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		version = info.Main.Version
	}

	var revision, modified string
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			modified = s.Value
		}
	}

	if commit == "" && revision != "" {
		if len(revision) > 7 {
			revision = revision[:7]
		}
		commit = revision
		if modified == "true" {
			commit += "-dirty"
		}
	}
	return version, commit
}

// Get returns the version information
func Get() Info {
	resolve()
	return Info{
		Version:   Version,
		Commit:    Commit,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// Short returns the version without a leading "v", for TXT records
func Short() string {
	resolve()
	return strings.TrimPrefix(Version, "v")
}

// Full returns the full version string including commit
func Full() string {
	resolve()
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}
