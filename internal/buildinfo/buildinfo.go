// Package buildinfo exposes environment and build metadata for the
// read-only runtime diagnostic endpoint.
package buildinfo

import "runtime/debug"

// Injected at build time via -ldflags "-X ...". Defaults describe a
// local development build.
var (
	Mode   = "development"
	Branch = "local"
	Commit = ""
	Origin = ""
)

// Info is the payload of the runtime-info endpoint.
type Info struct {
	Mode   string `json:"mode"`
	Branch string `json:"branch"`
	Commit string `json:"commit"`
	Origin string `json:"origin"`
}

// Get returns the build metadata, filling the commit from the embedded
// VCS info when no ldflags value was injected.
func Get() Info {
	commit := Commit
	if commit == "" {
		if bi, ok := debug.ReadBuildInfo(); ok {
			for _, s := range bi.Settings {
				if s.Key == "vcs.revision" {
					commit = s.Value
					break
				}
			}
		}
	}
	return Info{
		Mode:   Mode,
		Branch: Branch,
		Commit: commit,
		Origin: Origin,
	}
}
