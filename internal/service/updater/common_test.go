package updater

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/require"
)

func TestNormalizeInstallPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	home, err := homedir.Dir()
	require.NoError(t, err)

	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr error
	}{
		{name: "absolute", raw: filepath.Join(dir, "PlaydateSDK"), want: filepath.Join(dir, "PlaydateSDK")},
		{name: "trimmed", raw: "  " + filepath.Join(dir, "sdk") + "\n", want: filepath.Join(dir, "sdk")},
		{name: "home relative", raw: "~/playdate-sdk-updater-test-missing", want: filepath.Join(home, "playdate-sdk-updater-test-missing")},
		{name: "empty", raw: " ", wantErr: ErrPathNotConfigured},
		{name: "extension", raw: filepath.Join(dir, "sdk.zip"), wantErr: ErrInvalidInstallPath},
		{name: "exists", raw: dir, wantErr: ErrInvalidInstallPath},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := normalizeInstallPath(tt.raw)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestIsNewer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		current, latest string
		newer, parsed   bool
	}{
		{current: "2.6.1", latest: "2.6.2", newer: true, parsed: true},
		{current: "2.6.2", latest: "2.6.2", newer: false, parsed: true},
		{current: "2.7.0", latest: "2.6.2", newer: false, parsed: true},
		{current: "", latest: "2.6.2"},
		{current: "2.6.1", latest: "build-42"},
	}

	for _, tt := range tests {
		newer, parsed := isNewer(tt.current, tt.latest)
		require.Equal(t, tt.newer, newer, "%s -> %s", tt.current, tt.latest)
		require.Equal(t, tt.parsed, parsed, "%s -> %s", tt.current, tt.latest)
	}
}

func TestInstanceMarker(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "staging.tar.gz"+MarkerSuffix)

	marker, err := acquireMarker(ctx, path)
	require.NoError(t, err)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, strconv.Itoa(os.Getpid()), string(contents))

	// The owner's own PID never counts as a live competitor.
	again, err := acquireMarker(ctx, path)
	require.NoError(t, err)

	again.release(ctx)
	marker.release(ctx)

	_, err = os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestInstanceMarkerReleaseKeepsForeignMarker(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "staging.tar.gz"+MarkerSuffix)

	marker, err := acquireMarker(ctx, path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("1"), 0o600))
	marker.release(ctx)

	_, err = os.Stat(path)
	require.NoError(t, err)
}
