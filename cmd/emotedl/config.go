package main

import (
	"fmt"
	"os"
	"path/filepath"

	"emotedl/pkg/config"
	"emotedl/pkg/ui"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = ".emotedl.yaml"

var forceInit bool

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage emotedl configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (EMOTEDL_*, also read from .env)
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration to a file",
	Long: `Write the default configuration, including the catalog selectors, to
'.emotedl.yaml' or to the path given with --config.`,
	RunE: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate a configuration file for syntax errors and invalid values.

This command checks:
  - YAML syntax
  - Required fields and the user path placeholder
  - Value ranges
  - That the output directory can be created`,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd, showCmd, validateCmd)

	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "overwrite an existing file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = defaultConfigPath
	}

	if _, err := os.Stat(path); err == nil && !forceInit {
		return fmt.Errorf("%s already exists, use --force to overwrite it", path)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}

	ui.PrintSuccess("Configuration file created: " + path)
	ui.PrintPlain("\nNext steps:")
	ui.PrintPlain("1. Adjust the output directory or the selectors if the site markup changed")
	ui.PrintPlain("2. Run 'emotedl config validate' to check the configuration")
	ui.PrintPlain("3. Start downloading with 'emotedl fetch <user-id>'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, configFlags(cmd))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	ui.PrintPlain(string(data))

	ui.PrintPlain("Configuration sources (in order of priority):")
	ui.PrintPlain("1. Command line flags")
	ui.PrintPlain("2. Environment variables (EMOTEDL_*)")
	if configFile != "" {
		ui.PrintPlain("3. Configuration file: " + configFile)
	} else {
		ui.PrintPlain("3. Configuration file: (searched in the default locations)")
	}
	ui.PrintPlain("4. Default values")
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = config.FindConfigFile()
		if path == "" {
			return fmt.Errorf("no configuration file found, specify one with --config")
		}
	}

	ui.PrintInfo("Validating configuration", path)

	cfg, err := config.Load(path, nil)
	if err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	var problems, warnings []string

	if err := os.MkdirAll(cfg.Output.BaseDirectory, 0755); err != nil {
		problems = append(problems, fmt.Sprintf("cannot create output directory: %v", err))
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			problems = append(problems, fmt.Sprintf("cannot create log directory: %v", err))
		}
	}
	if cfg.Download.ConcurrentDownloads > 16 {
		warnings = append(warnings, "more than 16 concurrent downloads may get you rate limited by the CDN")
	}
	if cfg.Browser.RemoteURL != "" && cfg.Browser.ExecPath != "" {
		warnings = append(warnings, "browser.exec_path is ignored when browser.remote_url is set")
	}
	if cfg.Resolver.StrictExtension {
		warnings = append(warnings, "strict_extension names files differently from earlier runs, existing files will not be skipped")
	}

	if len(problems) > 0 {
		ui.PrintError("Configuration has errors:")
		for _, p := range problems {
			ui.PrintPlain("  - " + p)
		}
		return fmt.Errorf("%d configuration errors", len(problems))
	}

	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings:")
		for _, w := range warnings {
			ui.PrintPlain("  - " + w)
		}
	}

	ui.PrintSuccess("Configuration is valid")

	ui.PrintPlain("\nConfiguration summary:")
	ui.PrintPlain(fmt.Sprintf("  Catalog: %s", cfg.Catalog.UserURL("<id>")))
	ui.PrintPlain(fmt.Sprintf("  Output directory: %s", cfg.Output.BaseDirectory))
	ui.PrintPlain(fmt.Sprintf("  Concurrent downloads: %d", cfg.Download.ConcurrentDownloads))
	ui.PrintPlain(fmt.Sprintf("  Retry attempts: %d", cfg.Download.RetryAttempts))
	ui.PrintPlain(fmt.Sprintf("  Browser wait timeout: %s", cfg.Browser.WaitTimeout))
	ui.PrintPlain(fmt.Sprintf("  Log level: %s", cfg.Logging.Level))
	return nil
}
