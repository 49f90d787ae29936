package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/colonyops/cresca/internal/core/git"
)

// RangeOptions are the raw ref names given on the command line.
type RangeOptions struct {
	Target string
	Source string
	SkipTo string
	StopAt string
}

// ReviewRange is the validated commit range under review: the merge-base of
// target and source (exclusive) up to the source tip (inclusive), with
// optional skip-to and stop-at boundaries inside it.
type ReviewRange struct {
	TargetRef string // as given
	SourceRef string // as given
	Target    string // resolved commit hash
	Source    string // resolved commit hash
	Base      string // merge-base of target and source
	Commits   []string
	SkipTo    string
	StopAt    string
}

// EffectiveHead returns the commit the review extends to: stop-at when
// given, otherwise the source tip.
func (r *ReviewRange) EffectiveHead() string {
	if r.StopAt != "" {
		return r.StopAt
	}
	return r.Source
}

// Prefix returns the auto-approved commits: everything up to and including
// skip-to, in oldest-first order. Empty when no skip-to was given.
func (r *ReviewRange) Prefix() []string {
	if r.SkipTo == "" {
		return nil
	}
	for i, sha := range r.Commits {
		if sha == r.SkipTo {
			return r.Commits[:i+1]
		}
	}
	return nil
}

// InScope returns the commits whose content requires review: everything
// after skip-to up to and including the effective head.
func (r *ReviewRange) InScope() []string {
	commits := r.Commits
	if r.StopAt != "" {
		for i, sha := range commits {
			if sha == r.StopAt {
				commits = commits[:i+1]
				break
			}
		}
	}
	if r.SkipTo != "" {
		for i, sha := range commits {
			if sha == r.SkipTo {
				return commits[i+1:]
			}
		}
	}
	return commits
}

// ResolveRange validates refs and ordering before any branch mutation.
//
// Failure modes: names that do not resolve, or hashes that resolve but are
// not reachable within merge-base..source, yield ErrRefResolution; skip-to
// later than stop-at yields ErrRangeOrder. No repository state is touched.
func ResolveRange(ctx context.Context, repo git.Repo, opts RangeOptions) (*ReviewRange, error) {
	target, err := resolveRef(ctx, repo, "target", opts.Target)
	if err != nil {
		return nil, err
	}
	source, err := resolveRef(ctx, repo, "source", opts.Source)
	if err != nil {
		return nil, err
	}

	base, err := repo.MergeBase(ctx, target, source)
	if err != nil {
		return nil, fmt.Errorf("merge-base of %s and %s: %w", opts.Target, opts.Source, err)
	}

	commits, err := repo.RevList(ctx, base, source)
	if err != nil {
		return nil, err
	}

	rng := &ReviewRange{
		TargetRef: opts.Target,
		SourceRef: opts.Source,
		Target:    target,
		Source:    source,
		Base:      base,
		Commits:   commits,
	}

	skipIdx := -1
	if opts.SkipTo != "" {
		rng.SkipTo, skipIdx, err = resolveInRange(ctx, repo, rng, "skip-to", opts.SkipTo)
		if err != nil {
			return nil, err
		}
	}

	if opts.StopAt != "" {
		var stopIdx int
		rng.StopAt, stopIdx, err = resolveInRange(ctx, repo, rng, "stop-at", opts.StopAt)
		if err != nil {
			return nil, err
		}
		if skipIdx > stopIdx {
			return nil, fmt.Errorf("skip-to %s is after stop-at %s: %w", opts.SkipTo, opts.StopAt, ErrRangeOrder)
		}
	}

	return rng, nil
}

func resolveRef(ctx context.Context, repo git.Repo, role, ref string) (string, error) {
	sha, err := repo.ResolveRef(ctx, ref)
	if err != nil {
		if errors.Is(err, git.ErrUnknownRef) {
			return "", fmt.Errorf("%s %q: %w", role, ref, ErrRefResolution)
		}
		return "", err
	}
	return sha, nil
}

// resolveInRange resolves a hash and requires it to be one of the range's
// commits. A commit that exists elsewhere in history but is not reachable
// from merge-base..source is rejected rather than mapped to a nearby commit.
func resolveInRange(ctx context.Context, repo git.Repo, rng *ReviewRange, role, ref string) (string, int, error) {
	sha, err := resolveRef(ctx, repo, role, ref)
	if err != nil {
		return "", -1, err
	}
	for i, c := range rng.Commits {
		if c == sha {
			return sha, i, nil
		}
	}
	return "", -1, fmt.Errorf("%s %q is not in range %s..%s: %w", role, ref, rng.TargetRef, rng.SourceRef, ErrRefResolution)
}
