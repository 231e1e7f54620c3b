package installer

import (
	"archive/tar"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func extractBytes(t *testing.T, payload []byte) (string, error) {
	t.Helper()

	dir := t.TempDir()
	archive := filepath.Join(dir, "archive.tar.gz")
	require.NoError(t, os.WriteFile(archive, payload, 0o644))

	destination := filepath.Join(dir, "out")

	return destination, ExtractTarGz(archive, destination)
}

func TestExtractTarGz(t *testing.T) {
	t.Parallel()

	destination, err := extractBytes(t, buildArchive(t, []archiveEntry{
		{name: "sdk/", dir: true},
		{name: "sdk/bin/pdutil", body: "bin", mode: 0o755},
		{name: "sdk/current", linkname: "bin"},
		{name: "sdk/bin/pdutil-copy", hardlink: "sdk/bin/pdutil"},
	}))
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(destination, "sdk", "bin", "pdutil"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	link, err := os.Readlink(filepath.Join(destination, "sdk", "current"))
	require.NoError(t, err)
	require.Equal(t, "bin", link)

	copied, err := os.Stat(filepath.Join(destination, "sdk", "bin", "pdutil-copy"))
	require.NoError(t, err)
	require.True(t, os.SameFile(info, copied), "hard link shares the original inode")

	contents, err := os.ReadFile(filepath.Join(destination, "sdk", "bin", "pdutil-copy"))
	require.NoError(t, err)
	require.Equal(t, "bin", string(contents))
}

func TestExtractTarGzRejectsUnsupportedEntries(t *testing.T) {
	t.Parallel()

	_, err := extractBytes(t, buildArchive(t, []archiveEntry{
		{name: "sdk/", dir: true},
		{name: "sdk/pipe", typeflag: tar.TypeFifo},
	}))
	require.ErrorIs(t, err, ErrUnsupportedEntry)
}

func TestExtractTarGzRejectsUnsafeEntries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		entry archiveEntry
	}{
		{name: "parent traversal", entry: archiveEntry{name: "../evil.sh", body: "x"}},
		{name: "nested traversal", entry: archiveEntry{name: "sdk/../../evil.sh", body: "x"}},
		{name: "absolute link", entry: archiveEntry{name: "sdk/passwd", linkname: "/etc/passwd"}},
		{name: "escaping link", entry: archiveEntry{name: "sdk/up", linkname: "../../.."}},
		{name: "escaping hard link", entry: archiveEntry{name: "sdk/passwd", hardlink: "../../etc/passwd"}},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := extractBytes(t, buildArchive(t, []archiveEntry{tt.entry}))
			require.ErrorIs(t, err, ErrUnsafePath)
		})
	}
}

func TestExtractTarGzRejectsCorruptArchive(t *testing.T) {
	t.Parallel()

	_, err := extractBytes(t, []byte("plain text"))
	require.Error(t, err)
}

func TestSingleRootLayoutIgnoresTopLevelFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	extracted := filepath.Join(dir, "tmp")
	target := filepath.Join(dir, "target")

	writeTree(t, extracted, map[string]string{
		"PlaydateSDK-2.6.2/VERSION.txt": "2.6.2",
		"readme.txt":                    "note",
	})
	require.NoError(t, os.Mkdir(target, 0o755))

	require.NoError(t, SingleRootLayout{}.Promote(extracted, target))
	require.Equal(t, map[string]string{"VERSION.txt": "2.6.2"}, readTree(t, target))
}
