// Package remote talks to the SDK vendor over HTTP.
//
// FetchUpdateInfo asks the update-check endpoint what the latest SDK is for
// the installed version. DownloadArchive fetches the SDK archive, reporting
// progress, and commits it onto the staging path in one atomic step.
package remote
