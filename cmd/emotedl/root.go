package main

import (
	"fmt"
	"os"
	"runtime"

	"emotedl/pkg/logger"
	"emotedl/pkg/ui"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	noColor    bool
	quiet      bool
	verbose    bool
	useTUI     bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "emotedl",
	Short: "Download every 7TV emote of a user",
	Long: `emotedl renders a 7TV user page in a headless browser, scrolls until the
whole emote listing is loaded and downloads every emote in its largest size.

Emotes are saved to <output>/<display name>/<emote name>.<ext>. Files that
already exist are skipped, so an interrupted run can simply be restarted.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Version = version

		if quiet || logLevel == "error" {
			ui.SetQuietMode(true)
		}
		if noColor || !term.IsTerminal(int(os.Stdout.Fd())) {
			ui.SetColorEnabled(false)
		}

		// The dashboard owns the screen; list output is meant for pipes
		if useTUI || cmd.Name() == "list" || cmd.Name() == "help" {
			return
		}
		ui.PrintLogo()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .emotedl.yaml or ~/.config/emotedl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error, disabled)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only print failures and summaries")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print transfer statistics after each user")
	rootCmd.PersistentFlags().BoolVar(&useTUI, "tui", false, "use the interactive terminal dashboard")

	rootCmd.SetVersionTemplate(`emotedl {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
