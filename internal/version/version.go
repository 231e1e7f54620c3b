package version

import "fmt"

// Build metadata, overridden with -ldflags "-X ..." at release time.
var (
	Version   = "1.0.0"
	Commit    = "none"
	BuildTime = "unknown"
)

// Short returns the bare updater version, as shown in the banner.
func Short() string {
	return Version
}

// Full returns the version with commit and build time.
func Full() string {
	return fmt.Sprintf("playdate-sdk-updater %s (commit %s, built %s)", Version, Commit, BuildTime)
}

// UserAgent names the updater in HTTP requests.
func UserAgent() string {
	return "playdate-sdk-updater/" + Version
}
