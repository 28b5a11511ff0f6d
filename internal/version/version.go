package version

import (
	"runtime/debug"
	"time"
)

var (
	// Version is the release version (set via -ldflags).
	Version = ""
	// Commit is the git commit hash (set via -ldflags).
	Commit = ""
	// BuildTime is the build timestamp (set via -ldflags).
	BuildTime = ""
)

type Info struct {
	Version   string
	Commit    string
	BuildTime string
}

// Resolve fills in the build metadata. When -ldflags left Version
// empty it falls back to module build info, then to the build time.
func Resolve() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
	}

	if info.Version == "" {
		if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
	}
	if info.Version == "" {
		if info.BuildTime != "" {
			info.Version = info.BuildTime
		} else {
			info.Version = time.Now().UTC().Format("20060102T150405Z")
		}
	}

	return info
}

// String renders the resolved version with a short commit suffix.
func String() string {
	info := Resolve()
	if info.Commit == "" {
		return info.Version
	}
	if len(info.Commit) > 12 {
		return info.Version + " (" + info.Commit[:12] + ")"
	}
	return info.Version + " (" + info.Commit + ")"
}
