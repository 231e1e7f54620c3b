package installer

import (
	"io"
	"os"
	"os/exec"

	"mvdan.cc/sh/v3/syntax"
)

// Process is a started child process.
type Process interface {
	Wait() error
}

// ProcessRunner starts the post-install script.
type ProcessRunner interface {
	Start(path string) (Process, error)
}

// ExecRunner starts scripts as detached children sharing the terminal.
// The child is deliberately not tied to a context so that it outlives the
// updater when the operator answers its prompts after we exit.
type ExecRunner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Start implements ProcessRunner.
func (r ExecRunner) Start(path string) (Process, error) {
	cmd := exec.Command(path) //nolint:gosec,noctx // path is the setup script inside the fresh install.
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr

	if r.Stdin != nil {
		cmd.Stdin = r.Stdin
	}

	if r.Stdout != nil {
		cmd.Stdout = r.Stdout
	}

	if r.Stderr != nil {
		cmd.Stderr = r.Stderr
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	return cmd, nil
}

// ManualCommand is the command line an operator runs to finish setup by hand.
func ManualCommand(scriptPath string) string {
	quoted, err := syntax.Quote(scriptPath, syntax.LangBash)
	if err != nil {
		quoted = scriptPath
	}

	return "sudo " + quoted
}
