// Package installer installs or replaces an SDK directory from a staged
// tar.gz archive.
//
// ApplyUpdate runs the ordered steps: download the archive unless a cached
// copy is usable, move the current install aside to <path>_backup, recreate
// <path>, unpack into <path>_tmp, promote the payload into <path>, offer to
// run the setup script and remove <path>_tmp. There is no automatic
// rollback: after a failure the previous install stays in <path>_backup for
// the operator to rename back.
package installer
