package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the emote downloader
type Config struct {
	// Remote catalog page and its markup
	Catalog CatalogConfig `yaml:"catalog" json:"catalog"`

	// Headless browser used to render the catalog
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// URL rewrite policy
	Resolver ResolverConfig `yaml:"resolver" json:"resolver"`

	// Download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// CatalogConfig describes where the catalog lives and how its markup looks
type CatalogConfig struct {
	BaseURL       string          `yaml:"base_url" json:"base_url"`
	UserPath      string          `yaml:"user_path" json:"user_path"`
	Selectors     SelectorsConfig `yaml:"selectors" json:"selectors"`
	NoMoreText    string          `yaml:"no_more_text" json:"no_more_text"`
	NoEntriesText string          `yaml:"no_entries_text" json:"no_entries_text"`
}

// SelectorsConfig holds the CSS selectors of every marker the materializer polls
type SelectorsConfig struct {
	Container   string `yaml:"container" json:"container"`
	DisplayName string `yaml:"display_name" json:"display_name"`
	NotFound    string `yaml:"not_found" json:"not_found"`
	Entry       string `yaml:"entry" json:"entry"`
	EntryName   string `yaml:"entry_name" json:"entry_name"`
	Source      string `yaml:"source" json:"source"`
	SourceAttr  string `yaml:"source_attr" json:"source_attr"`
	Terminal    string `yaml:"terminal" json:"terminal"`
}

// BrowserConfig holds chromedp settings
type BrowserConfig struct {
	Headless     bool          `yaml:"headless" json:"headless"`
	ExecPath     string        `yaml:"exec_path" json:"exec_path"`
	RemoteURL    string        `yaml:"remote_url" json:"remote_url"`
	WaitTimeout  time.Duration `yaml:"wait_timeout" json:"wait_timeout"`
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval"`
	UserAgent    string        `yaml:"user_agent" json:"user_agent"`
	WindowWidth  int           `yaml:"window_width" json:"window_width"`
	WindowHeight int           `yaml:"window_height" json:"window_height"`
}

// ResolverConfig holds the positional URL conventions of the asset host
type ResolverConfig struct {
	SizeFrom        string `yaml:"size_from" json:"size_from"`
	SizeTo          string `yaml:"size_to" json:"size_to"`
	ExtensionLength int    `yaml:"extension_length" json:"extension_length"`
	StrictExtension bool   `yaml:"strict_extension" json:"strict_extension"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	ConcurrentDownloads int           `yaml:"concurrent_downloads" json:"concurrent_downloads"`
	DownloadTimeout     time.Duration `yaml:"download_timeout" json:"download_timeout"`
	RetryAttempts       int           `yaml:"retry_attempts" json:"retry_attempts"`
	RetryDelay          time.Duration `yaml:"retry_delay" json:"retry_delay"`
	// RetryBackoff is "exponential" or "constant"
	RetryBackoff string `yaml:"retry_backoff" json:"retry_backoff"`
	UserAgent    string `yaml:"user_agent" json:"user_agent"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory"`
	SaveManifest  bool   `yaml:"save_manifest" json:"save_manifest"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

// DefaultConfig returns a Config instance matching the current 7TV markup
func DefaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			BaseURL:  "https://7tv.app",
			UserPath: "/users/%s",
			Selectors: SelectorsConfig{
				Container:   ".emotes",
				DisplayName: ".name",
				NotFound:    ".troll",
				Entry:       ".emote",
				EntryName:   ".name",
				Source:      "source",
				SourceAttr:  "srcset",
				Terminal:    "p",
			},
			NoMoreText:    "No more emotes",
			NoEntriesText: "No emotes",
		},
		Browser: BrowserConfig{
			Headless:     true,
			WaitTimeout:  30 * time.Second,
			PollInterval: 250 * time.Millisecond,
			UserAgent:    defaultUserAgent,
			WindowWidth:  1280,
			WindowHeight: 1024,
		},
		Resolver: ResolverConfig{
			SizeFrom:        "1x",
			SizeTo:          "4x",
			ExtensionLength: 3,
			StrictExtension: false,
		},
		Download: DownloadConfig{
			ConcurrentDownloads: 1,
			DownloadTimeout:     30 * time.Second,
			RetryAttempts:       3,
			RetryDelay:          time.Second,
			RetryBackoff:        "exponential",
			UserAgent:           defaultUserAgent,
		},
		Output: OutputConfig{
			BaseDirectory: "useremotes",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// UserURL returns the catalog page of a user
func (c *CatalogConfig) UserURL(userID string) string {
	return strings.TrimRight(c.BaseURL, "/") + fmt.Sprintf(c.UserPath, strings.TrimSpace(userID))
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if baseURL := os.Getenv("EMOTEDL_BASE_URL"); baseURL != "" {
		c.Catalog.BaseURL = baseURL
	}
	if outputDir := os.Getenv("EMOTEDL_OUTPUT_DIR"); outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if execPath := os.Getenv("EMOTEDL_CHROME_PATH"); execPath != "" {
		c.Browser.ExecPath = execPath
	}
	if remote := os.Getenv("EMOTEDL_REMOTE_URL"); remote != "" {
		c.Browser.RemoteURL = remote
	}
	if headless := os.Getenv("EMOTEDL_HEADLESS"); headless != "" {
		c.Browser.Headless = strings.ToLower(headless) != "false"
	}
	if wait := os.Getenv("EMOTEDL_WAIT_TIMEOUT"); wait != "" {
		d, err := time.ParseDuration(wait)
		if err != nil {
			errs = append(errs, fmt.Errorf("EMOTEDL_WAIT_TIMEOUT: %w", err))
		} else {
			c.Browser.WaitTimeout = d
		}
	}
	if concurrent := os.Getenv("EMOTEDL_CONCURRENT_DOWNLOADS"); concurrent != "" {
		val, err := strconv.Atoi(concurrent)
		if err != nil {
			errs = append(errs, fmt.Errorf("EMOTEDL_CONCURRENT_DOWNLOADS: %w", err))
		} else if val > 0 {
			c.Download.ConcurrentDownloads = val
		}
	}
	if strict := os.Getenv("EMOTEDL_STRICT_EXTENSION"); strict != "" {
		c.Resolver.StrictExtension = strings.ToLower(strict) == "true"
	}
	if backoff := os.Getenv("EMOTEDL_RETRY_BACKOFF"); backoff != "" {
		c.Download.RetryBackoff = strings.ToLower(backoff)
	}
	if manifest := os.Getenv("EMOTEDL_SAVE_MANIFEST"); manifest != "" {
		c.Output.SaveManifest = strings.ToLower(manifest) == "true"
	}
	if logLevel := os.Getenv("EMOTEDL_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile := os.Getenv("EMOTEDL_LOG_FILE"); logFile != "" {
		c.Logging.File = logFile
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// FindConfigFile returns the first existing file of the default locations
func FindConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".emotedl.yaml",
		".emotedl.yml",
		filepath.Join(home, ".config", "emotedl", "config.yaml"),
		filepath.Join(home, ".config", "emotedl", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Catalog.BaseURL == "" {
		errs = append(errs, errors.New("catalog base URL is required"))
	}
	if strings.Count(c.Catalog.UserPath, "%s") != 1 {
		errs = append(errs, errors.New("catalog user path must contain exactly one %s"))
	}
	sel := c.Catalog.Selectors
	for name, value := range map[string]string{
		"container":    sel.Container,
		"display_name": sel.DisplayName,
		"not_found":    sel.NotFound,
		"entry":        sel.Entry,
		"entry_name":   sel.EntryName,
		"source":       sel.Source,
		"source_attr":  sel.SourceAttr,
		"terminal":     sel.Terminal,
	} {
		if value == "" {
			errs = append(errs, fmt.Errorf("selector %s is required", name))
		}
	}
	if c.Catalog.NoMoreText == "" || c.Catalog.NoEntriesText == "" {
		errs = append(errs, errors.New("terminal marker texts are required"))
	}

	if c.Browser.WaitTimeout <= 0 {
		errs = append(errs, errors.New("browser wait timeout must be positive"))
	}
	if c.Browser.PollInterval < 0 {
		errs = append(errs, errors.New("browser poll interval cannot be negative"))
	}

	if c.Resolver.SizeFrom == "" {
		errs = append(errs, errors.New("resolver size_from is required"))
	}
	if c.Resolver.ExtensionLength <= 0 {
		errs = append(errs, errors.New("resolver extension length must be positive"))
	}

	if c.Download.ConcurrentDownloads <= 0 {
		errs = append(errs, errors.New("concurrent downloads must be positive"))
	}
	if c.Download.ConcurrentDownloads > 16 {
		errs = append(errs, errors.New("concurrent downloads should not exceed 16"))
	}
	if c.Download.DownloadTimeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}
	if c.Download.RetryAttempts < 1 {
		errs = append(errs, errors.New("retry attempts must be at least 1"))
	}
	switch c.Download.RetryBackoff {
	case "exponential", "constant":
	default:
		errs = append(errs, fmt.Errorf("invalid retry backoff %q", c.Download.RetryBackoff))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	return errors.Join(errs...)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if concurrent, ok := flags["concurrent"].(int); ok && concurrent > 0 {
		c.Download.ConcurrentDownloads = concurrent
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if headless, ok := flags["headless"].(bool); ok {
		c.Browser.Headless = headless
	}
	if remote, ok := flags["remote-url"].(string); ok && remote != "" {
		c.Browser.RemoteURL = remote
	}
	if wait, ok := flags["wait-timeout"].(time.Duration); ok && wait > 0 {
		c.Browser.WaitTimeout = wait
	}
	if strict, ok := flags["strict-extension"].(bool); ok {
		c.Resolver.StrictExtension = strict
	}
	if manifest, ok := flags["manifest"].(bool); ok {
		c.Output.SaveManifest = manifest
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Missing .env files are fine
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".emotedl.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
