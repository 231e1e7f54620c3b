package environment

import (
	"os"
	"path/filepath"
	"strings"
)

// Provider looks up configuration values by name.
type Provider interface {
	LookupEnv(key string) (string, bool)
}

// OSProvider reads the real process environment.
type OSProvider struct{}

// LookupEnv implements Provider.
func (OSProvider) LookupEnv(key string) (string, bool) {
	return os.LookupEnv(key)
}

// MapProvider serves values from memory.
type MapProvider map[string]string

// LookupEnv implements Provider.
func (m MapProvider) LookupEnv(key string) (string, bool) {
	value, ok := m[key]

	return value, ok
}

// Resolver answers where the SDK lives and which version it is.
type Resolver struct {
	provider    Provider
	variable    string
	versionFile string
}

// NewResolver creates a Resolver reading variable from provider and the
// version from versionFile inside the resolved path.
func NewResolver(provider Provider, variable, versionFile string) *Resolver {
	if provider == nil {
		provider = OSProvider{}
	}

	return &Resolver{
		provider:    provider,
		variable:    variable,
		versionFile: versionFile,
	}
}

// Variable returns the name of the environment variable consulted.
func (r *Resolver) Variable() string {
	return r.variable
}

// ResolveInstallPath returns the configured install path.
// The second result is false when the variable is unset or blank.
func (r *Resolver) ResolveInstallPath() (string, bool) {
	value, ok := r.provider.LookupEnv(r.variable)
	if !ok {
		return "", false
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}

	return value, true
}

// ResolveInstalledVersion reads the trimmed version marker inside path.
// Any read failure, a missing file included, means no version is known.
func (r *Resolver) ResolveInstalledVersion(path string) (string, bool) {
	if path == "" {
		return "", false
	}

	contents, err := os.ReadFile(filepath.Join(filepath.Clean(path), r.versionFile))
	if err != nil {
		return "", false
	}

	return strings.TrimSpace(string(contents)), true
}
