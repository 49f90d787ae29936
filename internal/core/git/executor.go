package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/colonyops/cresca/pkg/executil"
)

// metaRefPrefix is the ref namespace holding per-branch review metadata blobs.
const metaRefPrefix = "refs/review-meta/"

// Executor implements Repo using the git command-line tool. All commands run
// in the repository directory given at construction.
type Executor struct {
	gitPath string
	dir     string
	exec    executil.Executor
	log     zerolog.Logger
}

// NewExecutor creates a git executor for the repository at dir.
func NewExecutor(gitPath, dir string, exec executil.Executor, log zerolog.Logger) *Executor {
	return &Executor{gitPath: gitPath, dir: dir, exec: exec, log: log}
}

func (e *Executor) git(ctx context.Context, args ...string) (string, error) {
	e.log.Debug().Strs("args", args).Msg("git")
	out, err := e.exec.Run(ctx, e.dir, e.gitPath, args...)
	return string(out), err
}

func (e *Executor) gitIn(ctx context.Context, stdin []byte, args ...string) (string, error) {
	e.log.Debug().Strs("args", args).Int("stdin_bytes", len(stdin)).Msg("git")
	out, err := e.exec.RunIn(ctx, e.dir, stdin, e.gitPath, args...)
	return string(out), err
}

func (e *Executor) ResolveRef(ctx context.Context, ref string) (string, error) {
	out, err := e.git(ctx, "rev-parse", "--verify", "--quiet", ref+"^{commit}")
	if err != nil {
		if executil.ExitCode(err) >= 0 {
			return "", fmt.Errorf("%q: %w", ref, ErrUnknownRef)
		}
		return "", fmt.Errorf("resolve %s: %w", ref, err)
	}
	return strings.TrimSpace(out), nil
}

func (e *Executor) MergeBase(ctx context.Context, a, b string) (string, error) {
	out, err := e.git(ctx, "merge-base", a, b)
	if err != nil {
		return "", fmt.Errorf("merge-base %s %s: %w", a, b, err)
	}
	return strings.TrimSpace(out), nil
}

func (e *Executor) RevList(ctx context.Context, base, head string) ([]string, error) {
	out, err := e.git(ctx, "rev-list", "--topo-order", "--reverse", base+".."+head)
	if err != nil {
		return nil, fmt.Errorf("rev-list %s..%s: %w", base, head, err)
	}
	return strings.Fields(out), nil
}

func (e *Executor) IsAncestor(ctx context.Context, a, b string) (bool, error) {
	_, err := e.git(ctx, "merge-base", "--is-ancestor", a, b)
	if err != nil {
		if executil.ExitCode(err) == 1 {
			return false, nil
		}
		return false, fmt.Errorf("is-ancestor %s %s: %w", a, b, err)
	}
	return true, nil
}

func (e *Executor) CurrentBranch(ctx context.Context) (string, error) {
	out, err := e.git(ctx, "branch", "--show-current")
	if err != nil {
		return "", fmt.Errorf("git branch: %w", err)
	}

	branch := strings.TrimSpace(out)
	if branch != "" {
		return branch, nil
	}

	// Empty branch name means detached HEAD - fall back to the short hash
	out, err = e.git(ctx, "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", fmt.Errorf("git rev-parse: %w", err)
	}
	return strings.TrimSpace(out), nil
}

func (e *Executor) BranchExists(ctx context.Context, name string) (bool, error) {
	_, err := e.git(ctx, "show-ref", "--verify", "--quiet", "refs/heads/"+name)
	if err != nil {
		if executil.ExitCode(err) >= 0 {
			return false, nil
		}
		return false, fmt.Errorf("show-ref %s: %w", name, err)
	}
	return true, nil
}

func (e *Executor) CreateBranch(ctx context.Context, name, at string) error {
	if _, err := e.git(ctx, "checkout", "-q", "-b", name, at); err != nil {
		return fmt.Errorf("create branch %s at %s: %w", name, at, err)
	}
	return nil
}

func (e *Executor) Checkout(ctx context.Context, name string) error {
	if _, err := e.git(ctx, "checkout", "-q", name); err != nil {
		return fmt.Errorf("checkout %s: %w", name, err)
	}
	return nil
}

func (e *Executor) Head(ctx context.Context) (string, error) {
	out, err := e.git(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("rev-parse HEAD: %w", err)
	}
	return strings.TrimSpace(out), nil
}

func (e *Executor) UpdateBranch(ctx context.Context, name, sha string) error {
	current, err := e.CurrentBranch(ctx)
	if err != nil {
		return err
	}
	if current == name {
		if _, err := e.git(ctx, "reset", "-q", "--hard", sha); err != nil {
			return fmt.Errorf("reset %s to %s: %w", name, sha, err)
		}
		return nil
	}
	if _, err := e.git(ctx, "branch", "-f", name, sha); err != nil {
		return fmt.Errorf("move branch %s to %s: %w", name, sha, err)
	}
	return nil
}

func (e *Executor) DeleteBranch(ctx context.Context, name string) error {
	if _, err := e.git(ctx, "branch", "-q", "-D", name); err != nil {
		return fmt.Errorf("delete branch %s: %w", name, err)
	}
	return nil
}

func (e *Executor) CherryPick(ctx context.Context, sha string) error {
	if _, err := e.git(ctx, "cherry-pick", "--allow-empty", sha); err != nil {
		return fmt.Errorf("cherry-pick %s: %w", sha, err)
	}
	return nil
}

func (e *Executor) Diff(ctx context.Context, from, to string) (string, error) {
	out, err := e.git(ctx, "diff", "--binary", from, to)
	if err != nil {
		return "", fmt.Errorf("diff %s %s: %w", from, to, err)
	}
	return out, nil
}

func (e *Executor) StagedDiff(ctx context.Context) (string, error) {
	out, err := e.git(ctx, "diff", "--cached", "--binary")
	if err != nil {
		return "", fmt.Errorf("staged diff: %w", err)
	}
	return out, nil
}

func (e *Executor) WorktreeDiff(ctx context.Context, commit string) (string, error) {
	out, err := e.git(ctx, "diff", "--binary", commit)
	if err != nil {
		return "", fmt.Errorf("worktree diff vs %s: %w", commit, err)
	}
	return out, nil
}

func (e *Executor) ApplyDiff(ctx context.Context, from, to string) error {
	return e.applyDiff(ctx, from, to, true)
}

func (e *Executor) ApplyDiffToWorktree(ctx context.Context, from, to string) error {
	return e.applyDiff(ctx, from, to, false)
}

func (e *Executor) applyDiff(ctx context.Context, from, to string, index bool) error {
	patch, err := e.Diff(ctx, from, to)
	if err != nil {
		return err
	}
	if strings.TrimSpace(patch) == "" {
		return nil
	}

	args := []string{"apply", "--whitespace=nowarn"}
	if index {
		args = append(args, "--index")
	} else {
		// Register files the patch creates with the index as intent-to-add,
		// otherwise `git diff <commit>` reports them as deletions of the
		// commit's copy and the next sync sees a phantom divergence.
		args = append(args, "--intent-to-add")
	}
	args = append(args, "-")
	if _, err := e.gitIn(ctx, []byte(patch), args...); err != nil {
		return fmt.Errorf("apply diff %s..%s: %w", from, to, err)
	}
	return nil
}

func (e *Executor) Commit(ctx context.Context, message string) (string, error) {
	if _, err := e.git(ctx, "commit", "-q", "-m", message); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return e.Head(ctx)
}

func (e *Executor) IsClean(ctx context.Context) (bool, error) {
	out, err := e.git(ctx, "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("git status: %w", err)
	}
	return len(strings.TrimSpace(out)) == 0, nil
}

// Locked checks for the index.lock file that git creates while mutating the
// repository. Its presence means another git process is mid-operation.
func (e *Executor) Locked(ctx context.Context) (bool, error) {
	out, err := e.git(ctx, "rev-parse", "--git-dir")
	if err != nil {
		return false, fmt.Errorf("rev-parse --git-dir: %w", err)
	}

	gitDir := strings.TrimSpace(out)
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(e.dir, gitDir)
	}

	_, err = os.Stat(filepath.Join(gitDir, "index.lock"))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat index.lock: %w", err)
}

func (e *Executor) ReadMeta(ctx context.Context, branch string) ([]byte, error) {
	ref := metaRefPrefix + branch
	out, err := e.git(ctx, "rev-parse", "--verify", "--quiet", ref)
	if err != nil {
		if executil.ExitCode(err) >= 0 {
			return nil, fmt.Errorf("%s: %w", branch, ErrNoMeta)
		}
		return nil, fmt.Errorf("resolve %s: %w", ref, err)
	}

	blob := strings.TrimSpace(out)
	data, err := e.git(ctx, "cat-file", "blob", blob)
	if err != nil {
		return nil, fmt.Errorf("read metadata %s: %w", ref, err)
	}
	return []byte(data), nil
}

func (e *Executor) WriteMeta(ctx context.Context, branch string, data []byte) error {
	out, err := e.gitIn(ctx, data, "hash-object", "-w", "--stdin")
	if err != nil {
		return fmt.Errorf("write metadata blob: %w", err)
	}

	blob := strings.TrimSpace(out)
	if _, err := e.git(ctx, "update-ref", metaRefPrefix+branch, blob); err != nil {
		return fmt.Errorf("update metadata ref for %s: %w", branch, err)
	}
	return nil
}

func (e *Executor) DeleteMeta(ctx context.Context, branch string) error {
	ref := metaRefPrefix + branch
	if _, err := e.git(ctx, "rev-parse", "--verify", "--quiet", ref); err != nil {
		if executil.ExitCode(err) >= 0 {
			return nil
		}
		return fmt.Errorf("resolve %s: %w", ref, err)
	}
	if _, err := e.git(ctx, "update-ref", "-d", ref); err != nil {
		return fmt.Errorf("delete metadata ref for %s: %w", branch, err)
	}
	return nil
}
