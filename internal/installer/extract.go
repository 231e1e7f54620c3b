package installer

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsafePath is returned for archive entries that would land outside
	// the extraction directory.
	ErrUnsafePath = errors.New("archive entry escapes extraction directory")
	// ErrUnsupportedEntry is returned for devices, fifos and other entries an
	// SDK tree never contains.
	ErrUnsupportedEntry = errors.New("unsupported archive entry")
)

// ExtractTarGz unpacks the gzip-compressed tar at archivePath into destination.
// Regular files keep their permission bits so scripts stay executable.
//
//nolint:gosec // G304: archivePath is the staging archive chosen by the updater.
func ExtractTarGz(archivePath, destination string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer file.Close() //nolint:errcheck // read-only file

	gz, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("create gzip reader: %w", err)
	}
	defer gz.Close() //nolint:errcheck // read-only decompressor

	if err = os.MkdirAll(destination, 0o755); err != nil {
		return fmt.Errorf("create extraction directory: %w", err)
	}

	tr := tar.NewReader(gz)

	for {
		header, nextErr := tr.Next()
		if errors.Is(nextErr, io.EOF) {
			return nil
		}

		if nextErr != nil {
			return fmt.Errorf("read tar entry: %w", nextErr)
		}

		if err = extractEntry(destination, header, tr); err != nil {
			return err
		}
	}
}

func extractEntry(destination string, header *tar.Header, content io.Reader) error {
	target, err := safePath(destination, header.Name)
	if err != nil {
		return err
	}

	mode := header.FileInfo().Mode().Perm()

	switch header.Typeflag {
	case tar.TypeDir:
		// Owner write is kept so the tree can be filled and later removed.
		if err = os.MkdirAll(target, mode|0o700); err != nil {
			return fmt.Errorf("create directory %s: %w", header.Name, err)
		}
	case tar.TypeReg, tar.TypeGNUSparse:
		if err = os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("create parent of %s: %w", header.Name, err)
		}

		if err = writeFile(target, mode, content); err != nil {
			return fmt.Errorf("extract %s: %w", header.Name, err)
		}
	case tar.TypeSymlink:
		if err = checkLink(destination, target, header.Linkname); err != nil {
			return err
		}

		if err = os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("create parent of %s: %w", header.Name, err)
		}

		if err = os.Symlink(header.Linkname, target); err != nil {
			return fmt.Errorf("link %s: %w", header.Name, err)
		}
	case tar.TypeLink:
		if err = linkEntry(destination, target, header.Linkname); err != nil {
			return fmt.Errorf("hard link %s: %w", header.Name, err)
		}
	case tar.TypeXGlobalHeader:
		// Archive-wide metadata, nothing to create.
	default:
		return fmt.Errorf("%w: %s (type %q)", ErrUnsupportedEntry, header.Name, header.Typeflag)
	}

	return nil
}

// linkEntry hard-links target to an entry extracted earlier.
// Tar hard-link names are relative to the archive root.
func linkEntry(destination, target, linkname string) error {
	source, err := safePath(destination, linkname)
	if err != nil {
		return err
	}

	if err = os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	return os.Link(source, target)
}

// safePath resolves name inside baseDir, rejecting traversal (Zip Slip).
func safePath(baseDir, name string) (string, error) {
	cleanBase := filepath.Clean(baseDir)
	dest := filepath.Join(cleanBase, name)

	if dest != cleanBase && !strings.HasPrefix(dest, cleanBase+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}

	return dest, nil
}

// checkLink rejects absolute links and links pointing outside baseDir.
func checkLink(baseDir, linkPath, linkTarget string) error {
	if filepath.IsAbs(linkTarget) {
		return fmt.Errorf("%w: absolute link %q", ErrUnsafePath, linkTarget)
	}

	linkDir, err := filepath.Rel(filepath.Clean(baseDir), filepath.Dir(linkPath))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnsafePath, err)
	}

	if _, err = safePath(baseDir, filepath.Join(linkDir, linkTarget)); err != nil {
		return err
	}

	return nil
}

//nolint:gosec // G304: path was validated by safePath.
func writeFile(path string, mode os.FileMode, content io.Reader) error {
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode|0o600)
	if err != nil {
		return err
	}

	_, copyErr := io.Copy(out, content)

	if closeErr := out.Close(); closeErr != nil && copyErr == nil {
		return closeErr
	}

	return copyErr
}
