package review

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/colonyops/cresca/internal/core/git"
)

// SyncEngine reconciles an existing review branch with new upstream commits
// since the last review pass.
type SyncEngine struct {
	repo git.Repo
	log  zerolog.Logger
}

// NewSyncEngine creates a new SyncEngine.
func NewSyncEngine(repo git.Repo, log zerolog.Logger) *SyncEngine {
	return &SyncEngine{repo: repo, log: log}
}

// SyncResult reports what a sync did.
type SyncResult struct {
	OldTip     string
	NewTip     string
	NewCommits int
	Changed    bool
}

// Sync advances the review branch to the range's current effective head.
//
// Identical tips are a no-op. A fast-forward advance applies the old..new
// delta to the working tree only, so already-staged and already-approved
// content is untouched and the new lines surface as fresh pending hunks.
// Anything else means the source history was rewritten; the engine refuses
// to guess a re-diff since a wrong guess would silently misattribute
// already-reviewed content as new or vice versa.
func (s *SyncEngine) Sync(ctx context.Context, branch string, st *SessionState, rng *ReviewRange) (*SyncResult, error) {
	newTip := rng.EffectiveHead()
	if newTip == st.LastSynced {
		s.log.Debug().Str("branch", branch).Str("tip", newTip).Msg("already synchronized")
		return &SyncResult{OldTip: st.LastSynced, NewTip: newTip}, nil
	}

	ff, err := s.repo.IsAncestor(ctx, st.LastSynced, newTip)
	if err != nil {
		return nil, err
	}
	if !ff {
		behind, err := s.repo.IsAncestor(ctx, newTip, st.LastSynced)
		if err != nil {
			return nil, err
		}
		if behind {
			return nil, fmt.Errorf("stop-at %s precedes the already-synchronized tip %s: %w",
				newTip, st.LastSynced, ErrRangeOrder)
		}
		return nil, fmt.Errorf("source %s no longer contains reviewed tip %s: %w",
			rng.SourceRef, st.LastSynced, ErrHistoryRewritten)
	}

	if err := s.enterBranch(ctx, branch, st); err != nil {
		return nil, err
	}

	if err := s.repo.ApplyDiffToWorktree(ctx, st.LastSynced, newTip); err != nil {
		return nil, err
	}

	delta, err := s.repo.RevList(ctx, st.LastSynced, newTip)
	if err != nil {
		return nil, err
	}

	res := &SyncResult{
		OldTip:     st.LastSynced,
		NewTip:     newTip,
		NewCommits: len(delta),
		Changed:    true,
	}

	st.LastSynced = newTip
	st.StopAt = rng.StopAt
	if err := SaveState(ctx, s.repo, branch, st); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("branch", branch).
		Str("old_tip", res.OldTip).
		Str("new_tip", res.NewTip).
		Int("new_commits", res.NewCommits).
		Msg("merged new source commits into pending review")

	return res, nil
}

// enterBranch ensures the review branch is checked out with its working
// tree equal to the last-synchronized tree, which is the invariant every
// sync starts from.
//
// When the branch is already checked out, any divergence means edits were
// made outside the tool and syncing would destroy them. When it is not,
// the pending content is rematerialized from the approved head and the
// last-synchronized commit; individual staging selections do not survive a
// branch switch, but no content is lost.
func (s *SyncEngine) enterBranch(ctx context.Context, branch string, st *SessionState) error {
	current, err := s.repo.CurrentBranch(ctx)
	if err != nil {
		return err
	}

	if current == branch {
		diff, err := s.repo.WorktreeDiff(ctx, st.LastSynced)
		if err != nil {
			return err
		}
		if strings.TrimSpace(diff) != "" {
			return fmt.Errorf("working tree diverged from last-synchronized tree %s: %w",
				st.LastSynced, ErrDirtyState)
		}
		return nil
	}

	clean, err := s.repo.IsClean(ctx)
	if err != nil {
		return err
	}
	if !clean {
		return fmt.Errorf("commit or stash local changes on %s before syncing: %w", current, ErrDirtyState)
	}
	if err := s.repo.Checkout(ctx, branch); err != nil {
		return err
	}

	head, err := s.repo.Head(ctx)
	if err != nil {
		return err
	}
	return s.repo.ApplyDiffToWorktree(ctx, head, st.LastSynced)
}
