// Package config defines the updater settings and helpers to load, validate
// and save them in YAML format.
//
// Every setting has a built-in default, so the settings file is optional;
// it exists to point the updater at another endpoint, platform or staging
// path without rebuilding.
package config
