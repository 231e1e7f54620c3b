package updater

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/oshokin/playdate-sdk-updater/internal/config"
	"github.com/oshokin/playdate-sdk-updater/internal/console"
	"github.com/oshokin/playdate-sdk-updater/internal/environment"
	"github.com/oshokin/playdate-sdk-updater/internal/installer"
	"github.com/oshokin/playdate-sdk-updater/internal/logger"
	"github.com/oshokin/playdate-sdk-updater/internal/prompt"
	"github.com/oshokin/playdate-sdk-updater/internal/remote"
	"github.com/oshokin/playdate-sdk-updater/internal/version"
)

var (
	// ErrMissingDownloadURL is returned when the update-check response has no archive URL.
	ErrMissingDownloadURL = errors.New("could not find download URL")
	// ErrPathNotConfigured is returned when no install path was given.
	ErrPathNotConfigured = errors.New("no SDK install path configured")
	// ErrInvalidInstallPath is returned for unusable install paths.
	ErrInvalidInstallPath = errors.New("invalid install path")
	// ErrAlreadyRunning is returned when another updater holds the marker.
	ErrAlreadyRunning = errors.New("the updater is already running")
)

const (
	installQuestion   = "Install latest version ? (Y/n)"
	termsQuestion     = "Have you read and accepted the Playdate SDK's terms ? (y/N)"
	pathQuestion      = "Enter desired install path (absolute path)"
	uncertainQuestion = "Could not check if newer version is available... do you want to download anyway ? (y/N)"
	newerQuestion     = "Newer version is available (%s --> %s) ! Do you want to install it ? (Y/n)"

	termsURL = "https://play.date/dev"
)

// Options are inputs accepted by the updater entry point.
type Options struct {
	// ConfigPath is the optional path to the settings YAML file.
	ConfigPath string
	// InstallDir skips the path prompt on a fresh install.
	InstallDir string
	// Clean forces a new download even when an archive is staged.
	Clean bool

	// Env replaces the process environment, mostly in tests.
	Env environment.Provider
	// In and Out replace the terminal.
	In  io.Reader
	Out io.Writer
	// HTTPClient replaces the default HTTP client.
	HTTPClient *http.Client
	// Runner replaces the setup script runner.
	Runner installer.ProcessRunner
}

// runner holds the collaborators of a single invocation.
type runner struct {
	opts     *Options
	cfg      *config.Config
	marker   *instanceMarker
	resolver *environment.Resolver
	client   *remote.Client
	prompter *prompt.Prompter
	out      *console.Console
	install  *installer.Orchestrator
}

// Run executes one updater invocation and is the public entry point for the CLI.
func Run(ctx context.Context, opts *Options) error {
	if opts == nil {
		opts = new(Options)
	}

	ctx = logger.WithName(ctx, "playdate-sdk-updater")

	u, err := newRunner(ctx, opts)
	if err != nil {
		return err
	}

	defer u.cleanup(ctx)

	if err = u.run(ctx); err != nil {
		logger.ErrorKV(ctx, "Updater run failed", "error", err)

		return err
	}

	return nil
}

func newRunner(ctx context.Context, opts *Options) (*runner, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if level, ok := logger.ParseLogLevel(cfg.LogLevel); ok {
		logger.SetLevel(level)
	}

	out := console.Stdout()
	prompter := prompt.NewPrompter()

	if opts.Out != nil {
		out = console.New(opts.Out)
	}

	if opts.In != nil || opts.Out != nil {
		prompter = prompt.NewPrompterWithIO(readerOr(opts.In, os.Stdin), writerOr(opts.Out, os.Stdout))
	}

	out.Banner(version.Short())

	marker, err := acquireMarker(ctx, cfg.StagingArchive+MarkerSuffix)
	if err != nil {
		return nil, err
	}

	client := remote.NewClient(cfg.UpdateURL, cfg.AppName, cfg.Platform,
		remote.WithHTTPClient(opts.HTTPClient),
		remote.WithTimeout(cfg.Timeout),
	)

	installerOptions := []installer.Option{installer.WithConsole(out)}
	if opts.Runner != nil {
		installerOptions = append(installerOptions, installer.WithRunner(opts.Runner))
	} else if opts.In != nil || opts.Out != nil {
		installerOptions = append(installerOptions, installer.WithRunner(installer.ExecRunner{
			Stdin:  opts.In,
			Stdout: opts.Out,
			Stderr: opts.Out,
		}))
	}

	orchestrator := installer.New(client, prompter, installer.Config{
		StagingArchive: cfg.StagingArchive,
		ForceClean:     opts.Clean,
		SetupScript:    cfg.SetupScript,
		WaitForSetup:   cfg.WaitForSetup,
		PathVariable:   cfg.PathVariable,
	}, installerOptions...)

	return &runner{
		opts:     opts,
		cfg:      cfg,
		marker:   marker,
		resolver: environment.NewResolver(opts.Env, cfg.PathVariable, cfg.VersionFile),
		client:   client,
		prompter: prompter,
		out:      out,
		install:  orchestrator,
	}, nil
}

// run walks the resolve, check, confirm and install sequence.
func (u *runner) run(ctx context.Context) error {
	installPath, configured := u.resolver.ResolveInstallPath()
	installed := configured && dirExists(installPath)

	currentVersion, versionKnown := "", false
	if configured {
		currentVersion, versionKnown = u.resolver.ResolveInstalledVersion(installPath)
	}

	logger.InfoKV(ctx, "Checking for updates",
		"path", installPath, "installed", installed, "version", currentVersion)

	info, err := u.client.FetchUpdateInfo(ctx, currentVersion)
	if err != nil {
		u.out.Failure("Critical Error : Could not check for updates.")

		return fmt.Errorf("fetch update info: %w", err)
	}

	downloadURL, ok := info.DownloadURL()
	if !ok || downloadURL == "" {
		u.out.Failure("Critical Error : Could not find download URL.")

		return ErrMissingDownloadURL
	}

	if !installed {
		return u.freshInstall(ctx, downloadURL)
	}

	latestVersion, hasLatest := info.LatestVersion()
	current := displayVersion(currentVersion, versionKnown)

	var proceed bool

	switch {
	case !hasLatest:
		proceed = u.prompter.Confirm(uncertainQuestion, false)
	case latestVersion != "":
		if newer, parsed := isNewer(currentVersion, latestVersion); parsed && !newer {
			logger.WarnKV(ctx, "Advertised version is not newer than the installed one",
				"installed", currentVersion, "advertised", latestVersion)
		}

		proceed = u.prompter.Confirm(fmt.Sprintf(newerQuestion, current, latestVersion), true)
	default:
		u.out.Success(fmt.Sprintf("You are already up-to-date (version %s)!", current))

		return nil
	}

	if !proceed {
		u.out.Failure("The SDK will NOT be updated. Goodbye.")

		return nil
	}

	return u.apply(ctx, downloadURL, installPath)
}

// freshInstall asks for consent and a target directory before installing.
func (u *runner) freshInstall(ctx context.Context, downloadURL string) error {
	u.out.Println("There seems to be no previous install of the Playdate SDK on this computer")

	if !u.prompter.Confirm(installQuestion, true) {
		u.out.Failure("The SDK will NOT be updated. Goodbye.")

		return nil
	}

	u.out.Println("Please read the terms and conditions for the SDK (see " + termsURL + ")")

	if !u.prompter.Confirm(termsQuestion, false) {
		u.out.Println("Please accept the terms and conditions for the SDK")

		return nil
	}

	rawPath := u.opts.InstallDir
	if rawPath == "" {
		var err error

		rawPath, err = u.prompter.Ask(pathQuestion)
		if err != nil {
			u.out.Failure("Invalid input, exiting...")

			return fmt.Errorf("%w: %w", ErrInvalidInstallPath, err)
		}
	}

	installPath, err := normalizeInstallPath(rawPath)
	if err != nil {
		u.out.Failure("Provided path cannot be used. Aborting install")

		return err
	}

	u.out.Println("Installing in directory " + installPath)

	return u.apply(ctx, downloadURL, installPath)
}

// apply runs the installer and points the operator at the backup on failure.
func (u *runner) apply(ctx context.Context, downloadURL, installPath string) error {
	err := u.install.ApplyUpdate(ctx, downloadURL, installPath)
	if err == nil {
		u.out.Println("Goodbye !")

		return nil
	}

	paths := installer.NewPaths(installPath)
	if afterBackup(err) && dirExists(paths.Backup) {
		u.out.Hint(fmt.Sprintf("Your previous install is kept in %s, rename it to %s to restore it.",
			paths.Backup, paths.Target))
	}

	return fmt.Errorf("apply update: %w", err)
}

func (u *runner) cleanup(ctx context.Context) {
	u.marker.release(ctx)
	logger.Debug(ctx, "The updater has been stopped")
}

// afterBackup reports whether err comes from a step that runs once the
// previous install was moved aside.
func afterBackup(err error) bool {
	return errors.Is(err, installer.ErrCreateTarget) ||
		errors.Is(err, installer.ErrExtractFailed) ||
		errors.Is(err, installer.ErrPromoteFailed)
}

func readerOr(value, fallback io.Reader) io.Reader {
	if value != nil {
		return value
	}

	return fallback
}

func writerOr(value, fallback io.Writer) io.Writer {
	if value != nil {
		return value
	}

	return fallback
}
