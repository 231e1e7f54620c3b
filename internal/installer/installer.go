package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/playdate-sdk-updater/internal/console"
	"github.com/oshokin/playdate-sdk-updater/internal/logger"
	"github.com/oshokin/playdate-sdk-updater/internal/prompt"
	"github.com/oshokin/playdate-sdk-updater/internal/remote"
)

var (
	// ErrDownloadFailed wraps archive download failures.
	ErrDownloadFailed = errors.New("download failed")
	// ErrBackupFailed is returned when the install could not be backed up
	// and the operator chose not to continue.
	ErrBackupFailed = errors.New("back up failed and installation was rejected")
	// ErrCreateTarget wraps failures to create the install directory.
	ErrCreateTarget = errors.New("could not create install directory")
	// ErrExtractFailed wraps failures to unpack the staging archive.
	ErrExtractFailed = errors.New("could not unpack downloaded version")
	// ErrPromoteFailed wraps failures to move unpacked files into place.
	ErrPromoteFailed = errors.New("could not extract files from unpacked folder")
)

const (
	backupQuestion = `Could not back up the previous install, continue anyway ? ` +
		`The previous install will be DELETED once the new version is unpacked. ` +
		`(If this is the first install, type "y") (y/N)`
	setupQuestion = "Run the shell command (requires being root) ? (Y/n)"
)

// Downloader fetches the archive onto the staging path.
type Downloader interface {
	DownloadArchive(ctx context.Context, archiveURL, destination string, progress remote.ProgressFunc) error
}

// Config carries the per-run settings of the orchestrator.
type Config struct {
	// StagingArchive is the fixed path of the cached archive.
	StagingArchive string
	// ForceClean ignores a cached archive and downloads again.
	ForceClean bool
	// SetupScript is the post-install script relative to the install directory.
	SetupScript string
	// WaitForSetup waits for the setup script to exit.
	WaitForSetup bool
	// PathVariable is shown in the closing reminder.
	PathVariable string
}

// Orchestrator runs the install/update sequence.
type Orchestrator struct {
	downloader Downloader
	confirmer  prompt.Confirmer
	runner     ProcessRunner
	layout     LayoutPolicy
	out        *console.Console
	cfg        Config

	// rename moves the install aside; replaced in tests to simulate failures.
	rename func(oldPath, newPath string) error
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRunner replaces the setup script runner.
func WithRunner(runner ProcessRunner) Option {
	return func(o *Orchestrator) {
		o.runner = runner
	}
}

// WithLayout replaces the promotion policy.
func WithLayout(layout LayoutPolicy) Option {
	return func(o *Orchestrator) {
		o.layout = layout
	}
}

// WithConsole replaces the operator-facing output.
func WithConsole(out *console.Console) Option {
	return func(o *Orchestrator) {
		o.out = out
	}
}

// New creates an Orchestrator. Without options the setup script runs as a
// real child process, the single-root layout is used and output goes to stdout.
func New(downloader Downloader, confirmer prompt.Confirmer, cfg Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		downloader: downloader,
		confirmer:  confirmer,
		runner:     ExecRunner{},
		layout:     SingleRootLayout{},
		out:        console.Stdout(),
		cfg:        cfg,
		rename:     os.Rename,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// ApplyUpdate installs the archive at archiveURL into targetPath, backing up
// any existing install first. The extraction directory is removed whatever
// the outcome; the staging archive is kept for later runs.
func (o *Orchestrator) ApplyUpdate(ctx context.Context, archiveURL, targetPath string) error {
	paths := NewPaths(targetPath)
	ctx = logger.WithKV(logger.WithName(ctx, "installer"), "path", paths.Target)

	logger.Info(ctx, "Updating your Playdate SDK install")
	o.out.Step(1, "Downloading latest version")

	if err := o.ensureArchive(ctx, archiveURL); err != nil {
		return err
	}

	o.out.Step(2, "Extracting files into folder")

	defer o.cleanup(ctx, paths)

	if err := o.install(ctx, paths); err != nil {
		return err
	}

	o.out.Success("Unpacking successful !")

	script := filepath.Join(paths.Target, o.cfg.SetupScript)
	o.out.Step(3, fmt.Sprintf("Run the shell script %s to finish setup", script))
	o.runSetup(ctx, script)

	o.out.Step(4, "Don't forget to set the environment variable !")
	o.out.Hint(fmt.Sprintf("%s=%s", o.cfg.PathVariable, paths.Target))

	return nil
}

// StagingArchiveReady reports whether a cached archive can be reused.
// An empty file is what an interrupted download leaves, so it does not count.
func StagingArchiveReady(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	return info.Mode().IsRegular() && info.Size() > 0
}

func (o *Orchestrator) ensureArchive(ctx context.Context, archiveURL string) error {
	if !o.cfg.ForceClean && StagingArchiveReady(o.cfg.StagingArchive) {
		logger.InfoKV(ctx, "Latest version was already downloaded, use --clean to force a re-download",
			"archive", o.cfg.StagingArchive)

		return nil
	}

	logger.InfoKV(ctx, "Downloading SDK archive", "url", archiveURL, "archive", o.cfg.StagingArchive)

	err := o.downloader.DownloadArchive(ctx, archiveURL, o.cfg.StagingArchive, o.out.Progress)
	o.out.FinishProgress()

	if err != nil {
		return fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}

	o.out.Success("File downloaded successfully.")

	return nil
}

// install runs backup, recreate, extract and promote in that order. Without
// a backup the previous install is only removed once the archive unpacked.
func (o *Orchestrator) install(ctx context.Context, paths Paths) error {
	replace, err := o.backup(ctx, paths)
	if err != nil {
		return err
	}

	if !replace {
		if err = o.createTarget(paths); err != nil {
			return err
		}
	}

	removeBestEffort(ctx, paths.Temp)

	logger.InfoKV(ctx, "Unpacking archive", "archive", o.cfg.StagingArchive, "into", paths.Temp)

	if err = ExtractTarGz(o.cfg.StagingArchive, paths.Temp); err != nil {
		o.out.Failure("Could not unpack downloaded version, aborting installation")

		return fmt.Errorf("%w: %w", ErrExtractFailed, err)
	}

	if replace {
		logger.WarnKV(ctx, "Removing previous install, no backup was made", "path", paths.Target)

		if err = os.RemoveAll(paths.Target); err != nil {
			o.out.Failure("Could not remove the previous install, it may be partially deleted")

			return fmt.Errorf("%w: remove previous install: %w", ErrCreateTarget, err)
		}

		if err = o.createTarget(paths); err != nil {
			return err
		}
	}

	logger.Info(ctx, "Unpacking done, extracting from unpacked folder")

	if err = o.layout.Promote(paths.Temp, paths.Target); err != nil {
		return fmt.Errorf("%w: %w", ErrPromoteFailed, err)
	}

	return nil
}

func (o *Orchestrator) createTarget(paths Paths) error {
	if err := os.MkdirAll(filepath.Dir(paths.Target), 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrCreateTarget, err)
	}

	if err := os.Mkdir(paths.Target, 0o755); err != nil {
		o.out.Failure("Could not create directory, aborting installation")

		return fmt.Errorf("%w: %w", ErrCreateTarget, err)
	}

	return nil
}

// backup moves an existing install to the backup directory. When the move
// fails the operator decides whether to continue without one; replace then
// reports that the install has to be removed before promotion.
func (o *Orchestrator) backup(ctx context.Context, paths Paths) (bool, error) {
	if _, err := os.Lstat(paths.Target); errors.Is(err, os.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("inspect install directory: %w", err)
	}

	logger.InfoKV(ctx, "Backing up previous install", "backup", paths.Backup)

	removeBestEffort(ctx, paths.Backup)

	err := o.rename(paths.Target, paths.Backup)
	if err == nil {
		return false, nil
	}

	logger.WarnKV(ctx, "Could not back up previous install", "error", err)

	if !o.confirmer.Confirm(backupQuestion, false) {
		logger.Info(ctx, "Aborting installation")

		return false, fmt.Errorf("%w: %w", ErrBackupFailed, err)
	}

	logger.Warn(ctx, "Continuing without a backup")

	return true, nil
}

// runSetup offers to start the setup script. Failures only produce instructions.
func (o *Orchestrator) runSetup(ctx context.Context, script string) {
	if !o.confirmer.Confirm(setupQuestion, true) {
		o.out.Println("You'll have to run the shell script yourself to finish your install.")
		o.out.Println("Typically, you would run the following:")
		o.out.Hint(ManualCommand(script))

		return
	}

	process, err := o.runner.Start(script)
	if err != nil {
		logger.WarnKV(ctx, "Setup script could not be started", "script", script, "error", err)
		o.out.Failure("The script crashed ; you may have to run it yourself with root privileges.")
		o.out.Hint(ManualCommand(script))

		return
	}

	logger.InfoKV(ctx, "Setup script started", "script", script)

	if !o.cfg.WaitForSetup {
		return
	}

	if err = process.Wait(); err != nil {
		logger.WarnKV(ctx, "Setup script failed", "script", script, "error", err)
		o.out.Hint(ManualCommand(script))
	}
}

func (o *Orchestrator) cleanup(ctx context.Context, paths Paths) {
	logger.Debug(ctx, "Cleaning up")
	removeBestEffort(ctx, paths.Temp)
}

// removeBestEffort deletes path and ignores failures other than logging them.
func removeBestEffort(ctx context.Context, path string) {
	if _, err := os.Lstat(path); err != nil {
		return
	}

	if err := os.RemoveAll(path); err != nil {
		logger.DebugKV(ctx, "Best-effort removal failed", "path", path, "error", err)
	}
}
