package review

// Error is a review failure with a stable identifier and process exit code.
// Sentinels below are wrapped with context via fmt.Errorf("...: %w", err)
// and matched with errors.Is; main maps them to exit codes via errors.As.
//
// None of these are retried automatically: every cause requires a reviewer
// or operator decision.
type Error struct {
	ID       string
	ExitCode int
	msg      string
}

func (e *Error) Error() string { return e.msg }

var (
	// ErrRefResolution indicates a target, source, skip-to, or stop-at that
	// does not resolve to a commit, or a hash that is not reachable within
	// the merge-base..source range.
	ErrRefResolution = &Error{ID: "ref-resolution", ExitCode: 10, msg: "ref does not resolve to a reviewable commit"}

	// ErrRangeOrder indicates skip-to is not an ancestor-or-equal of stop-at.
	ErrRangeOrder = &Error{ID: "range-order", ExitCode: 11, msg: "skip-to must be an ancestor of stop-at"}

	// ErrDirtyState indicates pre-existing uncommitted changes that are not
	// pending hunks created by this tool.
	ErrDirtyState = &Error{ID: "dirty-state", ExitCode: 12, msg: "unexpected uncommitted changes in working tree"}

	// ErrHistoryRewritten indicates the source ref no longer fast-forwards
	// from the last-synchronized tip.
	ErrHistoryRewritten = &Error{ID: "history-rewritten", ExitCode: 13, msg: "source history rewritten since last review"}

	// ErrRepoLocked indicates another process holds the repository lock.
	ErrRepoLocked = &Error{ID: "repo-locked", ExitCode: 14, msg: "repository is locked by another process"}

	// ErrNothingStaged indicates approve was called with an empty staging
	// area relative to the branch head.
	ErrNothingStaged = &Error{ID: "nothing-staged", ExitCode: 15, msg: "no staged changes to approve"}
)
