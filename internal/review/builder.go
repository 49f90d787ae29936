package review

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/colonyops/cresca/internal/core/git"
)

// BranchBuilder creates the review branch on the first review invocation.
type BranchBuilder struct {
	repo git.Repo
	log  zerolog.Logger
}

// NewBranchBuilder creates a new BranchBuilder.
func NewBranchBuilder(repo git.Repo, log zerolog.Logger) *BranchBuilder {
	return &BranchBuilder{repo: repo, log: log}
}

// Build creates branch at the range's merge-base, commits the auto-approved
// prefix one commit at a time (original boundaries preserved, not squashed),
// and applies the remaining in-scope diff as staged-but-uncommitted content.
//
// On success the working tree equals the effective head's tree and the
// returned session state records the effective head as the
// last-synchronized tip.
func (b *BranchBuilder) Build(ctx context.Context, branch string, rng *ReviewRange) (*SessionState, error) {
	clean, err := b.repo.IsClean(ctx)
	if err != nil {
		return nil, err
	}
	if !clean {
		return nil, fmt.Errorf("commit or stash local changes before starting a review: %w", ErrDirtyState)
	}

	if err := b.repo.CreateBranch(ctx, branch, rng.Base); err != nil {
		return nil, err
	}

	for _, sha := range rng.Prefix() {
		if err := b.repo.CherryPick(ctx, sha); err != nil {
			return nil, fmt.Errorf("auto-approve %s: %w", sha, err)
		}
	}

	head, err := b.repo.Head(ctx)
	if err != nil {
		return nil, err
	}
	if err := b.repo.ApplyDiff(ctx, head, rng.EffectiveHead()); err != nil {
		return nil, err
	}

	st := &SessionState{
		Target:     rng.TargetRef,
		Source:     rng.SourceRef,
		Base:       rng.Base,
		LastSynced: rng.EffectiveHead(),
		SkipTo:     rng.SkipTo,
		StopAt:     rng.StopAt,
	}
	if err := SaveState(ctx, b.repo, branch, st); err != nil {
		return nil, err
	}

	b.log.Info().
		Str("branch", branch).
		Str("base", rng.Base).
		Int("auto_approved", len(rng.Prefix())).
		Int("in_scope", len(rng.InScope())).
		Msg("review branch prepared")

	return st, nil
}
