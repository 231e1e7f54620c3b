// Package updater runs one updater invocation from start to finish.
//
// It loads settings, resolves the current SDK install from the environment,
// asks the update-check endpoint what is available, walks the operator
// through the fresh-install or update prompts and hands the archive over to
// the installer. Errors are returned to the caller, which decides the exit
// status.
package updater
