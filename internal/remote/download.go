package remote

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const (
	// UnknownContentLength is reported as the total when the server sends no length.
	UnknownContentLength int64 = 1

	// ArchiveFileMode is the permission of the staging archive.
	ArchiveFileMode os.FileMode = 0o644
)

// ProgressFunc is called while downloading with bytes received so far and the
// advertised total, which is UnknownContentLength when the server sends none.
type ProgressFunc func(received, total int64)

// PartialSuffix names the file the body is streamed into before it
// replaces the staging archive.
const PartialSuffix = ".part"

// DownloadArchive streams archiveURL into destination+PartialSuffix and
// renames it onto destination once the body is complete, so a failed
// transfer leaves any previous staging archive as it was.
func (c *Client) DownloadArchive(
	ctx context.Context,
	archiveURL, destination string,
	progress ProgressFunc,
) error {
	response, err := c.get(ctx, archiveURL)
	if err != nil {
		return fmt.Errorf("download archive: %w", err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	total := response.ContentLength
	if total <= 0 {
		total = UnknownContentLength
	}

	reader := &progressReader{
		reader:   response.Body,
		total:    total,
		callback: progress,
	}

	destination = filepath.Clean(destination)
	partial := destination + PartialSuffix

	if err = os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}

	if err = streamToFile(partial, reader); err != nil {
		_ = os.Remove(partial)

		return fmt.Errorf("receive archive: %w", err)
	}

	if err = os.Rename(partial, destination); err != nil {
		_ = os.Remove(partial)

		return fmt.Errorf("write staging archive: %w", err)
	}

	return nil
}

//nolint:gosec // G304: path derives from the configured staging archive.
func streamToFile(path string, reader io.Reader) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, ArchiveFileMode)
	if err != nil {
		return err
	}

	_, copyErr := io.Copy(file, reader)

	if closeErr := file.Close(); copyErr == nil {
		copyErr = closeErr
	}

	return copyErr
}

// progressReader reports cumulative bytes read to a callback.
type progressReader struct {
	reader   io.Reader
	total    int64
	received int64
	callback ProgressFunc
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.received += int64(n)

	if r.callback != nil && n > 0 {
		r.callback(r.received, r.total)
	}

	return n, err
}
