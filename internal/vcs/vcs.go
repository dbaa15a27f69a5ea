package vcs

import (
	"fmt"
	"runtime/debug"
)

// Version reports the VCS revision stamped into the binary, with a -dirty
// suffix for builds from a modified tree. ldflag overrides take precedence.
func Version(override string) string {
	if override != "" {
		return override
	}

	var (
		revision string
		modified bool
	)
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				revision = s.Value
			case "vcs.modified":
				modified = s.Value == "true"
			}
		}
	}

	if revision == "" {
		return "unknown"
	}
	if modified {
		return fmt.Sprintf("%s-dirty", revision)
	}
	return revision
}
