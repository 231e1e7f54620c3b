package installer

import (
	"path/filepath"
	"strings"
)

const (
	backupSuffix = "_backup"
	tempSuffix   = "_tmp"
)

// Paths are the three directory roles derived from one install path.
type Paths struct {
	// Target is the final SDK directory.
	Target string
	// Backup holds the previous install after an update.
	Backup string
	// Temp receives the unpacked archive before promotion.
	Temp string
}

// NewPaths derives the backup and extraction directories from target.
func NewPaths(target string) Paths {
	target = filepath.Clean(strings.TrimSpace(target))

	return Paths{
		Target: target,
		Backup: target + backupSuffix,
		Temp:   target + tempSuffix,
	}
}
