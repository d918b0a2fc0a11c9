// Package versions reports which build of catalog-sync is running. The
// values are stamped with -ldflags; local builds fall back to the VCS
// settings the Go toolchain embeds.
package versions

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

const (
	unknownStr = "unknown"
	devVersion = "dev"

	buildDateLayout = "2006-01-02 15:04:05 MST"
)

// Stamped at build time, e.g.
//
//	-ldflags "-X github.com/webspark/catalog-sync/internal/versions.Version=v1.2.0"
var (
	Version = devVersion
	//nolint:goconst // stamped by the build
	Commit = unknownStr
	//nolint:goconst // stamped by the build
	BuildDate = unknownStr
)

// VersionInfo is served by the version command and GET /version
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// String renders the info on one line for the version command
func (v VersionInfo) String() string {
	return fmt.Sprintf("catalog-sync %s (commit %s, built %s, %s %s)",
		v.Version, v.Commit, v.BuildDate, v.GoVersion, v.Platform)
}

// GetVersionInfo returns the version information of the running binary
func GetVersionInfo() VersionInfo {
	return getVersionInfoWithValues(Version, Commit, BuildDate)
}

// UserAgent identifies the binary to feed servers
func UserAgent() string {
	return "catalog-sync/" + GetVersionInfo().Version
}

func getVersionInfoWithValues(version, commit, buildDate string) VersionInfo {
	if strings.HasPrefix(version, devVersion) {
		settings := vcsSettings()
		if commit == unknownStr && settings["vcs.revision"] != "" {
			commit = settings["vcs.revision"]
		}
		if buildDate == unknownStr && settings["vcs.time"] != "" {
			buildDate = settings["vcs.time"]
		}
	}

	if version == devVersion {
		version = fmt.Sprintf("build-%.*s", 8, commit)
	}

	return VersionInfo{
		Version:   version,
		Commit:    commit,
		BuildDate: formatBuildDate(buildDate),
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// vcsSettings returns the vcs.* settings embedded by the toolchain
func vcsSettings() map[string]string {
	out := map[string]string{}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return out
	}
	for _, s := range info.Settings {
		if strings.HasPrefix(s.Key, "vcs.") {
			out[s.Key] = s.Value
		}
	}
	return out
}

// formatBuildDate renders RFC 3339 stamps in UTC and keeps anything else as is
func formatBuildDate(value string) string {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return value
	}
	return t.UTC().Format(buildDateLayout)
}
