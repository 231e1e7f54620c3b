// Package environment locates an existing SDK installation.
//
// The install path comes from a single environment variable read through a
// Provider, so tests can supply a MapProvider instead of touching the real
// process environment. The installed version is read from a marker file in
// that directory.
package environment
