package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	goupdate "github.com/doitdistributed/go-update"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/playdate-sdk-updater/internal/logger"
)

// Config holds the settings of a single updater run.
type Config struct {
	// UpdateURL is the update-check endpoint queried with the installed version.
	UpdateURL string `yaml:"update_url"`
	// AppName is sent as the "app" query parameter.
	AppName string `yaml:"app_name"`
	// Platform is sent as the "platform" query parameter.
	Platform string `yaml:"platform"`
	// PathVariable names the environment variable holding the install path.
	PathVariable string `yaml:"path_variable"`
	// VersionFile is the version marker file inside the install directory.
	VersionFile string `yaml:"version_file"`
	// StagingArchive is the fixed path of the cached downloaded archive.
	StagingArchive string `yaml:"staging_archive"`
	// SetupScript is the post-install script, relative to the install directory.
	SetupScript string `yaml:"setup_script"`
	// WaitForSetup makes the updater wait for the setup script to exit.
	WaitForSetup bool `yaml:"wait_for_setup"`
	// Timeout bounds each HTTP request; zero means no timeout.
	Timeout time.Duration `yaml:"timeout"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

const (
	// DefaultConfigFilename is the settings file name inside the config directory.
	DefaultConfigFilename = "settings.yaml"

	// DefaultUpdateURL is the update-check endpoint of the SDK vendor.
	DefaultUpdateURL = "https://panic.com/updates/soapbox.php"

	// DefaultAppName identifies the SDK to the update-check endpoint.
	DefaultAppName = "Playdate Simulator"

	// DefaultPlatform identifies the operating system to the update-check endpoint.
	DefaultPlatform = "linux"

	// DefaultPathVariable is the environment variable pointing to the SDK.
	DefaultPathVariable = "PLAYDATE_SDK_PATH"

	// DefaultVersionFile is the version marker shipped inside the SDK.
	DefaultVersionFile = "VERSION.txt"

	// DefaultStagingArchive is where the downloaded archive is cached between runs.
	DefaultStagingArchive = "/tmp/playdatesdk.tar.gz"

	// DefaultSetupScript is the script that finishes an install.
	DefaultSetupScript = "setup.sh"

	// DefaultLogLevel is used when the settings do not name one.
	DefaultLogLevel = "info"

	// DefaultFilePermissions is the permission used for the settings file.
	DefaultFilePermissions = 0o600

	// appDirectory is the directory name under the user config dir.
	appDirectory = "playdate-sdk-updater"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errNegativeTimeout is returned when the timeout is below zero.
	errNegativeTimeout = errors.New("timeout must not be negative")
	// errUnknownLogLevel is returned for a log level zap does not know.
	errUnknownLogLevel = errors.New("unknown log level")
	// errAbsoluteScript is returned when the setup script escapes the install directory.
	errAbsoluteScript = errors.New("setup script must be relative to the install directory")
)

// Default returns settings with every field set to its built-in value.
func Default() *Config {
	return &Config{
		UpdateURL:      DefaultUpdateURL,
		AppName:        DefaultAppName,
		Platform:       DefaultPlatform,
		PathVariable:   DefaultPathVariable,
		VersionFile:    DefaultVersionFile,
		StagingArchive: DefaultStagingArchive,
		SetupScript:    DefaultSetupScript,
		LogLevel:       DefaultLogLevel,
	}
}

// DefaultPath returns the settings path under the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config directory: %w", err)
	}

	return filepath.Join(dir, appDirectory, DefaultConfigFilename), nil
}

// Load reads settings from path and validates them.
// An empty path means the default location; a missing default file yields
// the built-in defaults, while a missing explicit file is an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		var err error

		path, err = DefaultPath()
		if err != nil {
			return Default(), nil //nolint:nilerr // No config directory simply means no settings file.
		}
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg := Default()
	if err = yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes settings to path, creating the parent directory when needed.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	path = filepath.Clean(path)

	if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}

	if err = replaceFile(path, data); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// replaceFile swaps path for data in one rename, so a reader never sees a
// half-written settings file. go-update renames the old file aside, so a
// missing target is created empty first.
func replaceFile(path string, data []byte) error {
	var placeholder bool

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err = os.WriteFile(path, nil, DefaultFilePermissions); err != nil {
			return err
		}

		placeholder = true
	} else if err != nil {
		return err
	}

	err := goupdate.Apply(bytes.NewReader(data), goupdate.Options{
		TargetPath: path,
		TargetMode: DefaultFilePermissions,
	})
	if err != nil && placeholder {
		_ = os.Remove(path)
	}

	return err
}

// Validate fills empty fields with defaults and rejects malformed values.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	defaults := Default()

	fillDefault(&settings.UpdateURL, defaults.UpdateURL)
	fillDefault(&settings.AppName, defaults.AppName)
	fillDefault(&settings.Platform, defaults.Platform)
	fillDefault(&settings.PathVariable, defaults.PathVariable)
	fillDefault(&settings.VersionFile, defaults.VersionFile)
	fillDefault(&settings.StagingArchive, defaults.StagingArchive)
	fillDefault(&settings.SetupScript, defaults.SetupScript)
	fillDefault(&settings.LogLevel, defaults.LogLevel)

	if _, err := url.ParseRequestURI(settings.UpdateURL); err != nil {
		return fmt.Errorf("invalid update URL: %w", err)
	}

	if settings.Timeout < 0 {
		return errNegativeTimeout
	}

	if filepath.IsAbs(settings.SetupScript) {
		return fmt.Errorf("%s: %w", settings.SetupScript, errAbsoluteScript)
	}

	if _, ok := logger.ParseLogLevel(settings.LogLevel); !ok {
		return fmt.Errorf("%q: %w", settings.LogLevel, errUnknownLogLevel)
	}

	return nil
}

func fillDefault(field *string, value string) {
	if strings.TrimSpace(*field) == "" {
		*field = value
	}
}
