// Package config handles feedpulse configuration from a YAML file, a .env
// file and environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/feedpulse/crawl"
	"github.com/hazyhaar/feedpulse/extract"
	"github.com/hazyhaar/feedpulse/feed"
)

// AppName names the xdg config and data directories.
const AppName = "feedpulse"

// Environment overrides.
const (
	EnvFeedURL   = "FEEDPULSE_FEED_URL"
	EnvRemoteURL = "FEEDPULSE_REMOTE_URL"
	EnvHTTPAddr  = "FEEDPULSE_HTTP_ADDR"
)

// Config is the top-level feedpulse configuration.
type Config struct {
	Browser  BrowserConfig  `yaml:"browser"`
	Feed     FeedConfig     `yaml:"feed"`
	Annotate AnnotateConfig `yaml:"annotate"`
	Crawl    CrawlConfig    `yaml:"crawl"`
	Report   ReportConfig   `yaml:"report"`
	Extract  extract.Rules  `yaml:"extract"`
	Archive  ArchiveConfig  `yaml:"archive"`
	HTTP     HTTPConfig     `yaml:"http"`
	Gate     GateConfig     `yaml:"gate"`
}

// BrowserConfig controls Chrome.
type BrowserConfig struct {
	Remote           string   `yaml:"remote"`
	Mode             string   `yaml:"mode"` // headless | headful
	UserDataDir      string   `yaml:"user_data_dir"`
	ResourceBlocking []string `yaml:"resource_blocking"`
}

// FeedConfig names the page to open.
type FeedConfig struct {
	URL string `yaml:"url"`
}

// AnnotateConfig controls the live annotation service.
type AnnotateConfig struct {
	Enabled         *bool                `yaml:"enabled"`
	DebounceWindow  time.Duration        `yaml:"debounce_window"`
	DebounceMax     int                  `yaml:"debounce_max"`
	PassesPerSecond float64              `yaml:"passes_per_second"`
	Thresholds      []feed.ThresholdBand `yaml:"thresholds"`
}

// IsEnabled reports whether annotation should run. Default: true.
func (a AnnotateConfig) IsEnabled() bool {
	return a.Enabled == nil || *a.Enabled
}

// CrawlConfig controls collection sessions.
type CrawlConfig struct {
	Settle        time.Duration `yaml:"settle"`
	DefaultPreset string        `yaml:"default_preset"`
	Custom        crawl.Config  `yaml:"custom"`
	// MaxDuration bounds every session whose preset or custom tuple has
	// no ceiling of its own.
	MaxDuration time.Duration `yaml:"max_duration"`
}

// ReportConfig controls report rendering.
type ReportConfig struct {
	Locale string `yaml:"locale"` // en | zh-TW
}

// ArchiveConfig locates the collection archive.
type ArchiveConfig struct {
	Path string `yaml:"path"`
}

// HTTPConfig controls the local control surface.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// GateConfig holds the bcrypt hash of the verification code. Empty means
// the built-in code.
type GateConfig struct {
	CodeHash string `yaml:"code_hash"`
}

// DefaultPath is the config file location under the xdg config home.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadFile reads a YAML configuration file, applies environment overrides
// and defaults. A missing file at the default path is not an error.
func LoadFile(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvFeedURL); v != "" {
		c.Feed.URL = v
	}
	if v := os.Getenv(EnvRemoteURL); v != "" {
		c.Browser.Remote = v
	}
	if v := os.Getenv(EnvHTTPAddr); v != "" {
		c.HTTP.Addr = v
	}
}

func (c *Config) applyDefaults() {
	if c.Browser.Mode == "" {
		c.Browser.Mode = "headless"
	}
	if c.Feed.URL == "" {
		c.Feed.URL = "https://www.threads.com/"
	}
	if c.Annotate.DebounceWindow <= 0 {
		c.Annotate.DebounceWindow = 100 * time.Millisecond
	}
	if c.Annotate.DebounceMax <= 0 {
		c.Annotate.DebounceMax = 64
	}
	if c.Annotate.PassesPerSecond <= 0 {
		c.Annotate.PassesPerSecond = 4
	}
	if len(c.Annotate.Thresholds) == 0 {
		c.Annotate.Thresholds = feed.DefaultBands()
	} else {
		c.Annotate.Thresholds = feed.NormalizeBands(c.Annotate.Thresholds)
	}
	if c.Crawl.Settle <= 0 {
		c.Crawl.Settle = crawl.DefaultSettle
	}
	if c.Crawl.MaxDuration <= 0 {
		c.Crawl.MaxDuration = crawl.DefaultMaxDuration
	}
	if c.Crawl.DefaultPreset == "" {
		c.Crawl.DefaultPreset = crawl.PresetStandard
	}
	if c.Report.Locale == "" {
		c.Report.Locale = crawl.LocaleEN
	}
	if c.Archive.Path == "" {
		c.Archive.Path = filepath.Join(xdg.DataHome, AppName, "archive.db")
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = "127.0.0.1:8787"
	}
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	switch c.Browser.Mode {
	case "headless", "headful":
	default:
		return fmt.Errorf("config: browser.mode must be headless or headful, got %q", c.Browser.Mode)
	}
	switch c.Report.Locale {
	case crawl.LocaleEN, crawl.LocaleZHTW:
	default:
		return fmt.Errorf("config: report.locale must be %s or %s, got %q",
			crawl.LocaleEN, crawl.LocaleZHTW, c.Report.Locale)
	}
	for _, b := range c.Annotate.Thresholds {
		if b.Min <= 0 {
			return fmt.Errorf("config: threshold %q: min must be positive", b.ID)
		}
	}
	return nil
}
