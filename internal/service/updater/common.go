package updater

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/mitchellh/go-homedir"
	"github.com/mitchellh/go-ps"

	"github.com/oshokin/playdate-sdk-updater/internal/logger"
)

const (
	// MarkerSuffix is appended to the staging archive path to name the
	// advisory marker of a running updater.
	MarkerSuffix = ".lock"

	// markerFileMode keeps the marker private to the operator.
	markerFileMode os.FileMode = 0o600

	// unknownVersion is shown when the installed version cannot be read.
	unknownVersion = "-.-.-"
)

// instanceMarker is an advisory marker holding the PID of the running updater.
type instanceMarker struct {
	path string
	pid  int
}

// acquireMarker writes the marker at path. A marker naming a live process
// means another updater owns the staging files; a marker naming a dead
// process is a leftover of a crashed run and is replaced.
func acquireMarker(ctx context.Context, path string) (*instanceMarker, error) {
	logger.DebugKV(ctx, "Checking for the presence of an update marker", "marker", path)

	if pid, ok := readMarker(path); ok {
		if isProcessAlive(pid) {
			return nil, fmt.Errorf("%w (pid %d, marker %s)", ErrAlreadyRunning, pid, path)
		}

		logger.InfoKV(ctx, "The update marker is stale, removing it", "marker", path, "pid", pid)

		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale marker: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create marker directory: %w", err)
	}

	//nolint:gosec // G304: path derives from the configured staging archive.
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, markerFileMode)
	if errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("%w (marker %s)", ErrAlreadyRunning, path)
	}

	if err != nil {
		return nil, fmt.Errorf("create marker: %w", err)
	}

	pid := os.Getpid()

	_, writeErr := file.WriteString(strconv.Itoa(pid))
	if closeErr := file.Close(); writeErr == nil {
		writeErr = closeErr
	}

	if writeErr != nil {
		_ = os.Remove(path)

		return nil, fmt.Errorf("write marker: %w", writeErr)
	}

	return &instanceMarker{path: path, pid: pid}, nil
}

// release removes the marker if it still belongs to this process.
func (m *instanceMarker) release(ctx context.Context) {
	if m == nil {
		return
	}

	if pid, ok := readMarker(m.path); !ok || pid != m.pid {
		return
	}

	if err := os.Remove(m.path); err != nil {
		logger.DebugKV(ctx, "Could not remove update marker", "marker", m.path, "error", err)
	}
}

func readMarker(path string) (int, bool) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return 0, false
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(contents)))
	if err != nil || pid <= 0 {
		// Garbage is treated like a marker of a dead process.
		return -1, true
	}

	return pid, true
}

func isProcessAlive(pid int) bool {
	if pid <= 0 || pid == os.Getpid() {
		return false
	}

	process, err := ps.FindProcess(pid)

	return err == nil && process != nil
}

// normalizeInstallPath turns operator input into the absolute path of a
// directory that does not exist yet.
func normalizeInstallPath(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrPathNotConfigured
	}

	expanded, err := homedir.Expand(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidInstallPath, err)
	}

	path, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidInstallPath, err)
	}

	if filepath.Ext(path) != "" {
		return "", fmt.Errorf("%w: %s is not a directory", ErrInvalidInstallPath, path)
	}

	if _, err = os.Lstat(path); err == nil {
		return "", fmt.Errorf("%w: %s already exists", ErrInvalidInstallPath, path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: %w", ErrInvalidInstallPath, err)
	}

	return path, nil
}

// isNewer reports whether latest is a newer semantic version than current.
// The second result is false when either side does not parse.
func isNewer(current, latest string) (bool, bool) {
	currentVersion, err := semver.NewVersion(strings.TrimSpace(current))
	if err != nil {
		return false, false
	}

	latestVersion, err := semver.NewVersion(strings.TrimSpace(latest))
	if err != nil {
		return false, false
	}

	return latestVersion.GreaterThan(currentVersion), true
}

func displayVersion(value string, known bool) string {
	if !known || value == "" {
		return unknownVersion
	}

	return value
}

func dirExists(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.IsDir()
}
