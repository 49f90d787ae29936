// Package git provides an abstraction for the version-control operations
// cresca needs to build and maintain review branches.
package git

import (
	"context"
	"errors"
)

// ErrUnknownRef indicates a ref or hash that does not resolve to a commit.
var ErrUnknownRef = errors.New("unknown ref")

// ErrNoMeta indicates a branch with no attached review metadata.
var ErrNoMeta = errors.New("no review metadata")

// Repo defines the version-control operations needed by the review engine.
// Implemented by Executor (shelling out to git) and by gittest.Repo (an
// in-memory fake used in engine tests).
type Repo interface {
	// ResolveRef resolves a ref name or (possibly abbreviated) hash to a
	// full commit identifier. Returns ErrUnknownRef if it does not resolve.
	ResolveRef(ctx context.Context, ref string) (string, error)
	// MergeBase returns the merge-base commit of a and b.
	MergeBase(ctx context.Context, a, b string) (string, error)
	// RevList returns the commits in base..head (base exclusive, head
	// inclusive) in topological, oldest-first order.
	RevList(ctx context.Context, base, head string) ([]string, error)
	// IsAncestor reports whether a is an ancestor of b. A commit is an
	// ancestor of itself.
	IsAncestor(ctx context.Context, a, b string) (bool, error)

	// CurrentBranch returns the checked-out branch name, or the short
	// commit hash in detached HEAD state.
	CurrentBranch(ctx context.Context) (string, error)
	// BranchExists reports whether a local branch exists.
	BranchExists(ctx context.Context, name string) (bool, error)
	// CreateBranch creates a branch at the given commit and checks it out.
	CreateBranch(ctx context.Context, name, at string) error
	// Checkout switches to an existing branch.
	Checkout(ctx context.Context, name string) error
	// Head returns the commit identifier of the checked-out branch head.
	Head(ctx context.Context) (string, error)
	// UpdateBranch moves a branch (and, when checked out, the working tree
	// and index) to the given commit, discarding local changes.
	UpdateBranch(ctx context.Context, name, sha string) error
	// DeleteBranch removes a local branch. The branch must not be checked out.
	DeleteBranch(ctx context.Context, name string) error

	// CherryPick applies the given commit on top of the current head as a
	// new commit, preserving its message.
	CherryPick(ctx context.Context, sha string) error
	// Diff returns the textual diff between the trees of two commits.
	Diff(ctx context.Context, from, to string) (string, error)
	// StagedDiff returns the diff between the head tree and the index.
	StagedDiff(ctx context.Context) (string, error)
	// WorktreeDiff returns the diff between the given commit's tree and the
	// working tree.
	WorktreeDiff(ctx context.Context, commit string) (string, error)
	// ApplyDiff applies the diff between two commits to both the index and
	// the working tree.
	ApplyDiff(ctx context.Context, from, to string) error
	// ApplyDiffToWorktree applies the diff between two commits to the
	// working tree only, leaving the index untouched.
	ApplyDiffToWorktree(ctx context.Context, from, to string) error
	// Commit records the index as a new commit on the current branch and
	// returns its identifier.
	Commit(ctx context.Context, message string) (string, error)

	// IsClean reports whether there are no uncommitted changes (staged,
	// unstaged, or untracked).
	IsClean(ctx context.Context) (bool, error)
	// Locked reports whether another process currently holds the
	// repository lock.
	Locked(ctx context.Context) (bool, error)

	// ReadMeta reads the metadata blob attached to a branch. Returns
	// ErrNoMeta when none is attached.
	ReadMeta(ctx context.Context, branch string) ([]byte, error)
	// WriteMeta attaches a metadata blob to a branch, replacing any
	// previous one.
	WriteMeta(ctx context.Context, branch string, data []byte) error
	// DeleteMeta removes the metadata attached to a branch, if any.
	DeleteMeta(ctx context.Context, branch string) error
}
