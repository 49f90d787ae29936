package review

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/colonyops/cresca/internal/core/git"
)

// stateVersion guards against reading metadata written by an incompatible
// release.
const stateVersion = 1

// SessionState is the durable metadata attached to a review branch. It is
// the only state the engine trusts between invocations: every operation
// re-reads current ref positions and uses this record as the memory of what
// was seen before.
type SessionState struct {
	Version    int       `yaml:"version"`
	Target     string    `yaml:"target"`
	Source     string    `yaml:"source"`
	Base       string    `yaml:"base"`
	LastSynced string    `yaml:"last_synced"`
	SkipTo     string    `yaml:"skip_to,omitempty"`
	StopAt     string    `yaml:"stop_at,omitempty"`
	UpdatedAt  time.Time `yaml:"updated_at"`
}

// LoadState reads and parses the session state attached to branch.
// Returns an error wrapping git.ErrNoMeta when the branch has none.
func LoadState(ctx context.Context, repo git.Repo, branch string) (*SessionState, error) {
	data, err := repo.ReadMeta(ctx, branch)
	if err != nil {
		return nil, err
	}

	var st SessionState
	if err := yaml.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parse session state for %s: %w", branch, err)
	}
	if st.Version != stateVersion {
		return nil, fmt.Errorf("unsupported session state version %d on %s", st.Version, branch)
	}
	return &st, nil
}

// SaveState writes the session state to the branch metadata, stamping the
// version and update time.
func SaveState(ctx context.Context, repo git.Repo, branch string, st *SessionState) error {
	st.Version = stateVersion
	st.UpdatedAt = time.Now().UTC()

	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode session state for %s: %w", branch, err)
	}
	if err := repo.WriteMeta(ctx, branch, data); err != nil {
		return fmt.Errorf("save session state for %s: %w", branch, err)
	}
	return nil
}
