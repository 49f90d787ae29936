// Package config handles configuration loading and validation for cresca.
package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hay-kot/criterio"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	// GitPath is the git executable to invoke.
	GitPath string `yaml:"git_path"`
	// BranchPrefix is the leading component of review branch names
	// (review branches are named <prefix>-<target>-<source>).
	BranchPrefix string `yaml:"branch_prefix"`
	// ApproveMessage is the commit message used for approved changes when
	// none is given on the command line.
	ApproveMessage string `yaml:"approve_message"`
	Status         StatusConfig `yaml:"status"`
}

// StatusConfig controls the status summary output.
type StatusConfig struct {
	// Ignore lists glob patterns for files excluded from status summaries
	// (e.g. lockfiles or generated code).
	Ignore []string `yaml:"ignore"`
	// MaxFiles caps the per-file listing in status output.
	MaxFiles int `yaml:"max_files"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		GitPath:        "git",
		BranchPrefix:   "review",
		ApproveMessage: "Approve reviewed changes",
		Status: StatusConfig{
			MaxFiles: 10,
		},
	}
}

// Load reads the config file at configPath, overlaying it on the defaults.
// A missing file is not an error; defaults are used.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.GitPath == "" {
		c.GitPath = defaults.GitPath
	}
	if c.BranchPrefix == "" {
		c.BranchPrefix = defaults.BranchPrefix
	}
	if c.ApproveMessage == "" {
		c.ApproveMessage = defaults.ApproveMessage
	}
	if c.Status.MaxFiles == 0 {
		c.Status.MaxFiles = defaults.Status.MaxFiles
	}
}

var branchPrefixPattern = regexp.MustCompile(`^[A-Za-z0-9._/-]+$`)

// Validate performs structural validation of the configuration.
func (c *Config) Validate() error {
	return criterio.ValidateStruct(
		criterio.Run("branch_prefix", c.BranchPrefix, validBranchPrefix),
		c.validateIgnoreGlobs(),
	)
}

func validBranchPrefix(prefix string) error {
	if !branchPrefixPattern.MatchString(prefix) {
		return fmt.Errorf("invalid branch prefix %q", prefix)
	}
	return nil
}

func (c *Config) validateIgnoreGlobs() error {
	var errs criterio.FieldErrorsBuilder
	for i, pattern := range c.Status.Ignore {
		if !doublestar.ValidatePattern(pattern) {
			errs = errs.Append(fmt.Sprintf("status.ignore[%d]", i), fmt.Errorf("invalid glob pattern %q", pattern))
		}
	}
	return errs.ToError()
}
