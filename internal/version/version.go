// Package version reports the shelfd build version, either stamped at link
// time or recovered from the binary's embedded build info.
package version

import "runtime/debug"

const modulePath = "pkt.systems/shelfd"

// buildVersion is stamped via
// -ldflags "-X pkt.systems/shelfd/internal/version.buildVersion=v1.2.3".
var buildVersion string

// Current returns the stamped version when present, the toolchain-recorded
// module version for released builds, or a revision-based fallback for
// source builds.
func Current() string {
	if buildVersion != "" {
		return buildVersion
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "v0.0.0-unknown"
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		return v
	}
	revision := ""
	dirty := false
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	if revision == "" {
		return "v0.0.0-unknown"
	}
	if len(revision) > 12 {
		revision = revision[:12]
	}
	if dirty {
		return "v0.0.0-" + revision + "+dirty"
	}
	return "v0.0.0-" + revision
}

// Module returns the module path recorded in build info.
func Module() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Path != "" {
		return info.Main.Path
	}
	return modulePath
}
