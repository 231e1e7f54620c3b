// Package console renders the operator-facing output that is not a log
// entry: the banner, step headers, highlighted hints and the download
// progress bar.
package console
