package version

import "runtime/debug"

// version is overridden at link time on release builds.
var version = "devel"

func Version() string {
	if version == "devel" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if v := info.Main.Version; v != "" && v != "(devel)" {
				return v
			}
		}
	}
	return version
}
