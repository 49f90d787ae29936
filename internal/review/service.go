// Package review implements the review-session engine: preparing review
// branches, approving staged content, and synchronizing with new upstream
// commits.
package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/colonyops/cresca/internal/core/config"
	"github.com/colonyops/cresca/internal/core/git"
)

// BranchName returns the review branch name for a target/source pair.
func BranchName(prefix, target, source string) string {
	return fmt.Sprintf("%s-%s-%s", prefix, target, source)
}

// Service is the entrypoint the CLI commands call. It decides between the
// first-run build and subsequent syncs, fails fast when another process
// holds the repository lock, and rolls the branch back to its pre-operation
// state when a mutation fails partway.
type Service struct {
	repo     git.Repo
	cfg      *config.Config
	log      zerolog.Logger
	builder  *BranchBuilder
	approver *ApprovalEngine
	syncer   *SyncEngine
}

// NewService creates a new review Service.
func NewService(repo git.Repo, cfg *config.Config, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		cfg:      cfg,
		log:      log,
		builder:  NewBranchBuilder(repo, log.With().Str("component", "builder").Logger()),
		approver: NewApprovalEngine(repo, log.With().Str("component", "approver").Logger()),
		syncer:   NewSyncEngine(repo, log.With().Str("component", "syncer").Logger()),
	}
}

// ReviewOptions configures a review invocation.
type ReviewOptions struct {
	Target string
	Source string
	SkipTo string
	StopAt string
}

// ReviewResult reports what a review invocation did.
type ReviewResult struct {
	Branch     string
	Created    bool
	UpToDate   bool
	NewCommits int
	Pending    git.Summary
}

// Review prepares the review branch for the given range, creating it on the
// first invocation and synchronizing it with new source commits afterwards.
func (s *Service) Review(ctx context.Context, opts ReviewOptions) (*ReviewResult, error) {
	if err := s.checkLock(ctx); err != nil {
		return nil, err
	}

	branch := BranchName(s.cfg.BranchPrefix, opts.Target, opts.Source)
	rng, err := ResolveRange(ctx, s.repo, RangeOptions(opts))
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.BranchExists(ctx, branch)
	if err != nil {
		return nil, err
	}
	if !exists {
		return s.firstReview(ctx, branch, rng)
	}
	return s.syncReview(ctx, branch, rng, opts)
}

func (s *Service) firstReview(ctx context.Context, branch string, rng *ReviewRange) (*ReviewResult, error) {
	prevBranch, err := s.repo.CurrentBranch(ctx)
	if err != nil {
		return nil, err
	}

	st, err := s.builder.Build(ctx, branch, rng)
	if err != nil {
		s.rollbackCreate(ctx, branch, prevBranch)
		return nil, err
	}

	return &ReviewResult{
		Branch:     branch,
		Created:    true,
		NewCommits: len(rng.InScope()),
		Pending:    s.pendingSummary(ctx, st.LastSynced),
	}, nil
}

func (s *Service) syncReview(ctx context.Context, branch string, rng *ReviewRange, opts ReviewOptions) (*ReviewResult, error) {
	st, err := LoadState(ctx, s.repo, branch)
	if err != nil {
		if errors.Is(err, git.ErrNoMeta) {
			return nil, fmt.Errorf("branch %s exists but carries no review session: %w", branch, ErrDirtyState)
		}
		return nil, err
	}

	// The prefix was committed when the branch was built; a different
	// skip-to cannot be honored retroactively.
	if opts.SkipTo != "" && opts.SkipTo != st.SkipTo {
		s.log.Warn().Str("skip_to", opts.SkipTo).Msg("skip-to is ignored on an existing review branch")
	}

	snap, err := s.snapshotSync(ctx, branch, st)
	if err != nil {
		return nil, err
	}

	res, err := s.syncer.Sync(ctx, branch, st, rng)
	if err != nil {
		// Validation failures happen before any mutation; everything else
		// may have left a half-applied working tree behind.
		if !isValidationErr(err) {
			s.rollbackSync(ctx, branch, snap)
		}
		return nil, err
	}

	return &ReviewResult{
		Branch:     branch,
		UpToDate:   !res.Changed,
		NewCommits: res.NewCommits,
		Pending:    s.pendingSummary(ctx, st.LastSynced),
	}, nil
}

// ApproveResult reports an approve invocation.
type ApproveResult struct {
	Branch    string
	Commit    string
	Remaining git.Summary
}

// Approve converts the staged content of the checked-out review branch into
// an approved commit.
func (s *Service) Approve(ctx context.Context, message string) (*ApproveResult, error) {
	if err := s.checkLock(ctx); err != nil {
		return nil, err
	}

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

	if message == "" {
		message = s.cfg.ApproveMessage
	}

	sha, err := s.approver.Approve(ctx, message)
	if err != nil {
		return nil, err
	}

	return &ApproveResult{
		Branch:    branch,
		Commit:    sha,
		Remaining: s.pendingSummary(ctx, st.LastSynced),
	}, nil
}

func (s *Service) checkLock(ctx context.Context) error {
	locked, err := s.repo.Locked(ctx)
	if err != nil {
		return err
	}
	if locked {
		return fmt.Errorf("another git operation is in progress: %w", ErrRepoLocked)
	}
	return nil
}

// pendingSummary describes the content between the branch head and the
// last-synchronized tip: everything reviewed-but-unapproved plus everything
// not yet reviewed. Best-effort; display only.
func (s *Service) pendingSummary(ctx context.Context, lastSynced string) git.Summary {
	head, err := s.repo.Head(ctx)
	if err == nil && head == lastSynced {
		return git.Summary{}
	}
	if err != nil {
		s.log.Warn().Err(err).Msg("could not read branch head for pending summary")
		return git.Summary{}
	}

	patch, err := s.repo.Diff(ctx, head, lastSynced)
	if err != nil {
		s.log.Warn().Err(err).Msg("could not compute pending summary")
		return git.Summary{}
	}
	sum, err := git.ParseDiff(patch)
	if err != nil {
		s.log.Warn().Err(err).Msg("could not parse pending summary")
		return git.Summary{}
	}
	return sum
}

// isValidationErr reports whether err was raised by pre-mutation
// validation, meaning the repository was not touched.
func isValidationErr(err error) bool {
	return errors.Is(err, ErrDirtyState) ||
		errors.Is(err, ErrHistoryRewritten) ||
		errors.Is(err, ErrRangeOrder) ||
		errors.Is(err, ErrRefResolution)
}

// rollbackCreate removes a partially built review branch and returns to the
// previously checked-out branch.
func (s *Service) rollbackCreate(ctx context.Context, branch, prevBranch string) {
	exists, err := s.repo.BranchExists(ctx, branch)
	if err != nil || !exists {
		return
	}

	current, err := s.repo.CurrentBranch(ctx)
	if err == nil && current == branch {
		// Discard partially applied content before leaving the branch.
		if err := s.repo.UpdateBranch(ctx, branch, branch); err != nil {
			s.log.Error().Err(err).Str("branch", branch).Msg("rollback: reset failed")
		}
		if err := s.repo.Checkout(ctx, prevBranch); err != nil {
			s.log.Error().Err(err).Str("branch", prevBranch).Msg("rollback: checkout failed")
			return
		}
	}

	if err := s.repo.DeleteBranch(ctx, branch); err != nil {
		s.log.Error().Err(err).Str("branch", branch).Msg("rollback: delete branch failed")
	}
	if err := s.repo.DeleteMeta(ctx, branch); err != nil {
		s.log.Error().Err(err).Str("branch", branch).Msg("rollback: delete metadata failed")
	}
	s.log.Warn().Str("branch", branch).Msg("rolled back partially built review branch")
}

type syncSnapshot struct {
	head       string
	lastSynced string
	meta       []byte
}

func (s *Service) snapshotSync(ctx context.Context, branch string, st *SessionState) (*syncSnapshot, error) {
	head, err := s.repo.ResolveRef(ctx, branch)
	if err != nil {
		return nil, err
	}
	meta, err := s.repo.ReadMeta(ctx, branch)
	if err != nil {
		return nil, err
	}
	return &syncSnapshot{head: head, lastSynced: st.LastSynced, meta: meta}, nil
}

// rollbackSync restores the branch head, rematerializes the pending content
// of the pre-sync tip, and restores the session metadata. Staging
// selections do not survive the reset; content does.
func (s *Service) rollbackSync(ctx context.Context, branch string, snap *syncSnapshot) {
	if err := s.repo.UpdateBranch(ctx, branch, snap.head); err != nil {
		s.log.Error().Err(err).Str("branch", branch).Msg("rollback: reset failed")
		return
	}

	current, err := s.repo.CurrentBranch(ctx)
	if err == nil && current == branch && snap.head != snap.lastSynced {
		if err := s.repo.ApplyDiffToWorktree(ctx, snap.head, snap.lastSynced); err != nil {
			s.log.Error().Err(err).Str("branch", branch).Msg("rollback: rematerialize pending failed")
		}
	}

	if err := s.repo.WriteMeta(ctx, branch, snap.meta); err != nil {
		s.log.Error().Err(err).Str("branch", branch).Msg("rollback: restore metadata failed")
	}
	s.log.Warn().Str("branch", branch).Msg("rolled back review branch after failed sync")
}
