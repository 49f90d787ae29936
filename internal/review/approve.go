package review

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/colonyops/cresca/internal/core/git"
)

// ApprovalEngine converts staged content into durable commits on the review
// branch.
type ApprovalEngine struct {
	repo git.Repo
	log  zerolog.Logger
}

// NewApprovalEngine creates a new ApprovalEngine.
func NewApprovalEngine(repo git.Repo, log zerolog.Logger) *ApprovalEngine {
	return &ApprovalEngine{repo: repo, log: log}
}

// Approve commits the currently staged content as a new child of the branch
// head and returns the commit hash. Unstaged pending content is left exactly
// as-is. The operation is purely additive: prior commits are never rewritten
// or discarded, which is what makes incremental approval safe.
func (a *ApprovalEngine) Approve(ctx context.Context, message string) (string, error) {
	staged, err := a.repo.StagedDiff(ctx)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(staged) == "" {
		return "", fmt.Errorf("stage the changes you have reviewed first: %w", ErrNothingStaged)
	}

	sha, err := a.repo.Commit(ctx, message)
	if err != nil {
		return "", fmt.Errorf("commit approved changes: %w", err)
	}

	a.log.Info().Str("commit", sha).Msg("approved staged changes")
	return sha, nil
}
