package installer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrUnexpectedLayout is returned when the unpacked archive does not have
// exactly one top-level directory.
var ErrUnexpectedLayout = errors.New("unexpected archive layout")

// LayoutPolicy moves unpacked archive content into the install directory.
type LayoutPolicy interface {
	Promote(extractedDir, targetDir string) error
}

// SingleRootLayout expects the archive payload under one top-level directory.
// Top-level files are packaging artifacts and are left behind.
type SingleRootLayout struct{}

// Promote moves every child of the single top-level directory into targetDir.
func (SingleRootLayout) Promote(extractedDir, targetDir string) error {
	entries, err := os.ReadDir(extractedDir)
	if err != nil {
		return fmt.Errorf("read extracted folder: %w", err)
	}

	var roots []string

	for _, entry := range entries {
		if entry.IsDir() {
			roots = append(roots, entry.Name())
		}
	}

	if len(roots) != 1 {
		return fmt.Errorf("%w: %d top-level directories in %s, want 1", ErrUnexpectedLayout, len(roots), extractedDir)
	}

	root := filepath.Join(extractedDir, roots[0])

	children, err := os.ReadDir(root)
	if err != nil {
		return fmt.Errorf("read %s: %w", root, err)
	}

	for _, child := range children {
		from := filepath.Join(root, child.Name())
		to := filepath.Join(targetDir, child.Name())

		if err = os.Rename(from, to); err != nil {
			return fmt.Errorf("move %s into %s: %w", child.Name(), targetDir, err)
		}
	}

	return nil
}
