package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/colonyops/cresca/internal/core/config"
	"github.com/colonyops/cresca/internal/core/git"
	"github.com/colonyops/cresca/internal/review"
	"github.com/colonyops/cresca/pkg/executil"
)

type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string
	RepoDir    string
	Verbose    bool

	// Config is loaded in the Before hook and available to all commands
	Config *config.Config
}

// DefaultConfigPath returns the default config file path using XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "cresca", "config.yaml")
}

// Service builds the review service for the configured repository.
func (f *Flags) Service() *review.Service {
	exec := &executil.RealExecutor{}
	repo := git.NewExecutor(f.Config.GitPath, f.RepoDir, exec, log.With().Str("component", "git").Logger())
	return review.NewService(repo, f.Config, log.With().Str("component", "review").Logger())
}

// summarize renders a diff summary as "N file(s), +X, -Y".
func summarize(sum git.Summary) string {
	return fmt.Sprintf("%d file(s), +%d, -%d", len(sum.Files), sum.Additions, sum.Deletions)
}
