// Package version reports the build version of the apportal binaries.
package version

import (
	"fmt"
	"runtime/debug"
	"time"
)

// Set at build time:
//
//	go build -ldflags="-X github.com/muurk/apportal/internal/version.Version=v0.3.0 \
//	                   -X github.com/muurk/apportal/internal/version.Commit=abc123"
//
// When unset they are filled from the VCS stamp in the build info, or fall
// back to "dev-<timestamp>" / "unknown".
var (
	// Version is the release version, also announced in the mDNS TXT record
	Version = ""
	// Commit is the short git commit hash
	Commit = ""
)

func init() {
	// If either wasn't set via ldflags, try the build info
	if Version == "" || Commit == "" {
		populateFromBuildInfo(debug.ReadBuildInfo)
	}

	// Final fallback if we still don't have values
	if Version == "" {
		Version = fmt.Sprintf("dev-%s", time.Now().Format("20060102-150405"))
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

// populateFromBuildInfo fills unset values from the VCS stamp Go embeds
// when building inside a git checkout. read is debug.ReadBuildInfo
// outside tests.
func populateFromBuildInfo(read func() (*debug.BuildInfo, bool)) {
	info, ok := read()
	if !ok {
		return
	}

	// Look for VCS settings in build info
	var vcsRevision, vcsModified, vcsTime string
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			vcsRevision = setting.Value
		case "vcs.modified":
			vcsModified = setting.Value
		case "vcs.time":
			vcsTime = setting.Value
		}
	}

	// Set commit from VCS revision if we have it
	if Commit == "" && vcsRevision != "" {
		// Use short hash (first 7 characters)
		if len(vcsRevision) > 7 {
			Commit = vcsRevision[:7]
		} else {
			Commit = vcsRevision
		}
		// Mark as dirty if modified
		if vcsModified == "true" {
			Commit += "-dirty"
		}
	}

	// Build info carries no tags, so derive a dev version from the
	// commit time
	if Version == "" && vcsTime != "" {
		if t, err := time.Parse(time.RFC3339, vcsTime); err == nil {
			Version = fmt.Sprintf("dev-%s", t.Format("20060102"))
		}
	}
}

// Full returns the full version string including commit
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}
