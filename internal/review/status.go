package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/colonyops/cresca/internal/core/git"
)

// Status describes the current position of a review session.
type Status struct {
	Branch     string
	Source     string
	LastSynced string
	Approved   int         // commits on the branch since its base, auto-approved prefix included
	Remaining  git.Summary // content not yet approved (staged + unstaged)
	Staged     git.Summary // subset currently staged for the next approve
}

// Status summarizes the checked-out review branch: how much is approved,
// how much remains, and what is staged. Files matching the configured
// ignore globs are excluded from the summaries.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	branch, err := s.repo.CurrentBranch(ctx)
	if err != nil {
		return nil, err
	}

	st, err := LoadState(ctx, s.repo, branch)
	if err != nil {
		if errors.Is(err, git.ErrNoMeta) {
			return nil, fmt.Errorf("%s is not a review branch; run 'cresca review' to prepare one", branch)
		}
		return nil, err
	}

	head, err := s.repo.Head(ctx)
	if err != nil {
		return nil, err
	}

	approved, err := s.repo.RevList(ctx, st.Base, head)
	if err != nil {
		return nil, err
	}

	remainingPatch, err := s.repo.Diff(ctx, head, st.LastSynced)
	if err != nil {
		return nil, err
	}
	remaining, err := git.ParseDiff(remainingPatch)
	if err != nil {
		return nil, err
	}

	stagedPatch, err := s.repo.StagedDiff(ctx)
	if err != nil {
		return nil, err
	}
	staged, err := git.ParseDiff(stagedPatch)
	if err != nil {
		return nil, err
	}

	ignore := s.cfg.Status.Ignore
	return &Status{
		Branch:     branch,
		Source:     st.Source,
		LastSynced: st.LastSynced,
		Approved:   len(approved),
		Remaining:  filterIgnored(remaining, ignore),
		Staged:     filterIgnored(staged, ignore),
	}, nil
}

// filterIgnored drops files matching any of the glob patterns and
// recomputes the aggregate counts.
func filterIgnored(sum git.Summary, patterns []string) git.Summary {
	if len(patterns) == 0 {
		return sum
	}

	var out git.Summary
	for _, f := range sum.Files {
		if matchAny(patterns, f.Path) {
			continue
		}
		out.Files = append(out.Files, f)
		out.Additions += f.Additions
		out.Deletions += f.Deletions
	}
	return out
}

func matchAny(patterns []string, path string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, path); err == nil && ok {
			return true
		}
	}
	return false
}
