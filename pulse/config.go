package pulse

import (
	"github.com/hazyhaar/feedpulse/pulse/internal/archive"
	"github.com/hazyhaar/feedpulse/pulse/internal/config"
	"github.com/hazyhaar/feedpulse/pulse/internal/gate"
)

// Config is the engine configuration.
type Config = config.Config

// Collection is an archived collection with its report and posts.
type Collection = archive.Collection

// Summary describes an archived collection.
type Summary = archive.Summary

// ErrReportNotFound is returned by Report for an unknown id.
var ErrReportNotFound = archive.ErrNotFound

// Environment variable names that override the config file.
const (
	EnvFeedURL   = config.EnvFeedURL
	EnvRemoteURL = config.EnvRemoteURL
	EnvHTTPAddr  = config.EnvHTTPAddr
)

// LoadConfig reads path (the xdg default when empty) with env overrides
// and defaults applied.
func LoadConfig(path string) (*Config, error) {
	return config.LoadFile(path)
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	return config.Default()
}

// DefaultConfigPath is the config file location used when none is given.
func DefaultConfigPath() string {
	return config.DefaultPath()
}

// HashCode returns the bcrypt hash to put in gate.code_hash.
func HashCode(code string) (string, error) {
	return gate.Hash(code)
}
