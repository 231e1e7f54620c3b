// Package version exposes build metadata of the updater binary.
//
// Version, Commit and BuildTime are injected with -ldflags at release time.
// Short is used in the banner and the User-Agent header, Full by the
// `version` subcommand.
package version
