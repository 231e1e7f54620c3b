package installer

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/playdate-sdk-updater/internal/remote"
)

type archiveEntry struct {
	name     string
	body     string
	mode     int64
	dir      bool
	linkname string
	hardlink string
	typeflag byte
}

func buildArchive(t *testing.T, entries []archiveEntry) []byte {
	t.Helper()

	var buf bytes.Buffer

	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for _, entry := range entries {
		header := &tar.Header{Name: entry.name, Mode: entry.mode}

		switch {
		case entry.typeflag != 0:
			header.Typeflag = entry.typeflag
		case entry.hardlink != "":
			header.Typeflag = tar.TypeLink
			header.Linkname = entry.hardlink
		case entry.dir:
			header.Typeflag = tar.TypeDir
			if header.Mode == 0 {
				header.Mode = 0o755
			}
		case entry.linkname != "":
			header.Typeflag = tar.TypeSymlink
			header.Linkname = entry.linkname
			header.Mode = 0o777
		default:
			header.Typeflag = tar.TypeReg
			header.Size = int64(len(entry.body))
			if header.Mode == 0 {
				header.Mode = 0o644
			}
		}

		require.NoError(t, tw.WriteHeader(header))

		if header.Typeflag == tar.TypeReg {
			_, err := tw.Write([]byte(entry.body))
			require.NoError(t, err)
		}
	}

	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	return buf.Bytes()
}

// sdkArchive mimics the upstream tarball: one versioned root plus a stray file.
func sdkArchive(t *testing.T, version string) []byte {
	t.Helper()

	return buildArchive(t, []archiveEntry{
		{name: "PlaydateSDK-" + version + "/", dir: true},
		{name: "PlaydateSDK-" + version + "/VERSION.txt", body: version},
		{name: "PlaydateSDK-" + version + "/setup.sh", body: "#!/bin/sh\n", mode: 0o755},
		{name: "PlaydateSDK-" + version + "/bin/", dir: true},
		{name: "PlaydateSDK-" + version + "/bin/pdc", body: "pdc"},
		{name: "readme.txt", body: "packaging note"},
	})
}

type fakeDownloader struct {
	mu      sync.Mutex
	payload []byte
	err     error
	calls   int
}

func (d *fakeDownloader) DownloadArchive(
	_ context.Context,
	_, destination string,
	progress remote.ProgressFunc,
) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls++

	if d.err != nil {
		return d.err
	}

	if progress != nil {
		progress(int64(len(d.payload)), int64(len(d.payload)))
	}

	return os.WriteFile(destination, d.payload, 0o644)
}

func (d *fakeDownloader) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.calls
}

// scriptedConfirmer answers questions in order and falls back to the default.
type scriptedConfirmer struct {
	answers   []bool
	questions []string
}

func (c *scriptedConfirmer) Confirm(question string, defaultValue bool) bool {
	c.questions = append(c.questions, question)

	if len(c.answers) == 0 {
		return defaultValue
	}

	answer := c.answers[0]
	c.answers = c.answers[1:]

	return answer
}

type fakeProcess struct {
	err error
}

func (p fakeProcess) Wait() error {
	return p.err
}

type fakeRunner struct {
	started  []string
	startErr error
	waitErr  error
}

func (r *fakeRunner) Start(path string) (Process, error) {
	if r.startErr != nil {
		return nil, r.startErr
	}

	r.started = append(r.started, path)

	return fakeProcess{err: r.waitErr}, nil
}

var errBoom = errors.New("boom")

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()

	for name, body := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
}

func readTree(t *testing.T, root string) map[string]string {
	t.Helper()

	files := make(map[string]string)

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}

		body, readErr := os.ReadFile(path)
		if readErr != nil {
			return readErr
		}

		files[filepath.ToSlash(rel)] = string(body)

		return nil
	})
	require.NoError(t, err)

	return files
}
