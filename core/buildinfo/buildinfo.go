// Package buildinfo carries version data stamped at link time:
//
//	-X 'github.com/m3rciful/achibot/core/buildinfo.Version=v1.2.3'
//	-X 'github.com/m3rciful/achibot/core/buildinfo.Commit=abcdef0'
//	-X 'github.com/m3rciful/achibot/core/buildinfo.Date=2026-01-30T12:00:00Z'
package buildinfo

import (
	"fmt"
	"runtime/debug"
)

var (
	Version = "dev"
	Commit  = "local"
	Date    = ""
)

// String renders version, commit and date on one line. Unstamped builds
// fall back to the VCS revision recorded by the go tool.
func String() string {
	commit, date := Commit, Date
	if commit == "local" {
		if rev, at, ok := vcs(); ok {
			commit, date = rev, at
		}
	}
	if date == "" {
		return fmt.Sprintf("%s (%s)", Version, commit)
	}
	return fmt.Sprintf("%s (%s, %s)", Version, commit, date)
}

func vcs() (rev, at string, ok bool) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", "", false
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.time":
			at = s.Value
		}
	}
	if len(rev) > 7 {
		rev = rev[:7]
	}
	return rev, at, rev != ""
}
