package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/playdate-sdk-updater/internal/service/updater"
	"github.com/oshokin/playdate-sdk-updater/internal/version"
)

const longDescription = `Playdate SDK Updater for Linux.
Install and update the Playdate SDK using an interactive CLI.

---- USAGE ----
playdate-sdk-updater : start an interactive CLI to guide you through the SDK setup.
--clean : ignore cached files
--install-dir=[directory] : install in specified directory (only for 1st install)
--config=[file] : read settings from file
--help : show this help page

---- LEGAL ----
Not affiliated with Panic Inc. Playdate is a trademark of Panic Inc.
THIS PROGRAM IS DISTRIBUTED "AS IS" AND COMES WITHOUT ANY WARRANTY TO THE EXTENT PERMITTED BY THE LAW.`

var (
	// configPath to the settings YAML file; empty means the default location.
	configPath string
	// installDir skips the path prompt on a fresh install.
	installDir string
	// clean ignores a cached archive.
	clean bool

	// rootCmd represents the interactive install and update flow.
	rootCmd = &cobra.Command{
		Use:          "playdate-sdk-updater",
		Short:        "Install and update the Playdate SDK",
		Long:         longDescription,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &updater.Options{
				ConfigPath: configPath,
				InstallDir: installDir,
				Clean:      clean,
			}

			return updater.Run(ctx, options)
		},
	}
)

// Execute runs the playdate-sdk-updater CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().BoolVar(&clean, "clean", false, "ignore cached files and download the SDK again")
	rootCmd.Flags().StringVar(&installDir, "install-dir", "", "install in the specified directory (only for 1st install)")
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to settings file")
}
