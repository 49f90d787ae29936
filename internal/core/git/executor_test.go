package git

import (
	"context"
	"fmt"
	"os/exec"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/cresca/pkg/executil"
)

func newTestExecutor(rec *executil.RecordingExecutor) *Executor {
	return NewExecutor("git", "/repo", rec, zerolog.Nop())
}

// exitError produces a real *exec.ExitError with the given code, since
// Executor distinguishes exit statuses from execution failures.
func exitError(t *testing.T, code int) error {
	t.Helper()
	err := exec.Command("sh", "-c", fmt.Sprintf("exit %d", code)).Run()
	require.Error(t, err)
	return err
}

func TestExecutor_ResolveRef(t *testing.T) {
	rec := &executil.RecordingExecutor{
		Outputs: map[string][]byte{"rev-parse": []byte("abc123\n")},
	}
	e := newTestExecutor(rec)

	sha, err := e.ResolveRef(context.Background(), "feature")
	require.NoError(t, err)
	assert.Equal(t, "abc123", sha)

	require.Len(t, rec.Commands, 1)
	assert.Equal(t, "/repo", rec.Commands[0].Dir)
	assert.Equal(t, []string{"rev-parse", "--verify", "--quiet", "feature^{commit}"}, rec.Commands[0].Args)
}

func TestExecutor_ResolveRef_Unknown(t *testing.T) {
	rec := &executil.RecordingExecutor{
		Errors: map[string]error{"rev-parse": exitError(t, 1)},
	}
	e := newTestExecutor(rec)

	_, err := e.ResolveRef(context.Background(), "nope")
	require.ErrorIs(t, err, ErrUnknownRef)
}

func TestExecutor_RevList(t *testing.T) {
	rec := &executil.RecordingExecutor{
		Outputs: map[string][]byte{"rev-list": []byte("aaa\nbbb\nccc\n")},
	}
	e := newTestExecutor(rec)

	shas, err := e.RevList(context.Background(), "base", "head")
	require.NoError(t, err)
	assert.Equal(t, []string{"aaa", "bbb", "ccc"}, shas)

	require.Len(t, rec.Commands, 1)
	assert.Equal(t, []string{"rev-list", "--topo-order", "--reverse", "base..head"}, rec.Commands[0].Args)
}

func TestExecutor_IsAncestor(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		want    bool
		wantErr bool
	}{
		{name: "ancestor", err: nil, want: true},
		{name: "not ancestor", err: exitError(t, 1), want: false},
		{name: "git failure", err: exitError(t, 128), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &executil.RecordingExecutor{Errors: map[string]error{"merge-base": tt.err}}
			e := newTestExecutor(rec)

			got, err := e.IsAncestor(context.Background(), "a", "b")
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExecutor_CurrentBranch_Detached(t *testing.T) {
	rec := &executil.RecordingExecutor{
		Outputs: map[string][]byte{
			"branch":    []byte("\n"),
			"rev-parse": []byte("abc1234\n"),
		},
	}
	e := newTestExecutor(rec)

	branch, err := e.CurrentBranch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc1234", branch)
}

func TestExecutor_BranchExists(t *testing.T) {
	e := newTestExecutor(&executil.RecordingExecutor{})
	exists, err := e.BranchExists(context.Background(), "feature")
	require.NoError(t, err)
	assert.True(t, exists)

	rec := &executil.RecordingExecutor{Errors: map[string]error{"show-ref": exitError(t, 1)}}
	e = newTestExecutor(rec)
	exists, err = e.BranchExists(context.Background(), "feature")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestExecutor_ApplyDiff(t *testing.T) {
	patch := "diff --git a/x.go b/x.go\n--- a/x.go\n+++ b/x.go\n@@ -1,1 +1,1 @@\n-old\n+new\n"
	rec := &executil.RecordingExecutor{
		Outputs: map[string][]byte{"diff": []byte(patch)},
	}
	e := newTestExecutor(rec)

	require.NoError(t, e.ApplyDiff(context.Background(), "aaa", "bbb"))

	require.Len(t, rec.Commands, 2)
	assert.Equal(t, []string{"diff", "--binary", "aaa", "bbb"}, rec.Commands[0].Args)
	assert.Equal(t, []string{"apply", "--whitespace=nowarn", "--index", "-"}, rec.Commands[1].Args)
	assert.Equal(t, []byte(patch), rec.Commands[1].Stdin)
}

func TestExecutor_ApplyDiffToWorktree(t *testing.T) {
	patch := "diff --git a/new.go b/new.go\n--- /dev/null\n+++ b/new.go\n@@ -0,0 +1,1 @@\n+package new\n"
	rec := &executil.RecordingExecutor{
		Outputs: map[string][]byte{"diff": []byte(patch)},
	}
	e := newTestExecutor(rec)

	require.NoError(t, e.ApplyDiffToWorktree(context.Background(), "aaa", "bbb"))

	// Created files are registered as intent-to-add so later worktree diffs
	// against a commit account for them.
	require.Len(t, rec.Commands, 2)
	assert.Equal(t, []string{"apply", "--whitespace=nowarn", "--intent-to-add", "-"}, rec.Commands[1].Args)
	assert.Equal(t, []byte(patch), rec.Commands[1].Stdin)
}

func TestExecutor_ApplyDiffToWorktree_SkipsEmptyPatch(t *testing.T) {
	rec := &executil.RecordingExecutor{}
	e := newTestExecutor(rec)

	require.NoError(t, e.ApplyDiffToWorktree(context.Background(), "aaa", "bbb"))

	// Only the diff command ran; nothing was piped to apply.
	require.Len(t, rec.Commands, 1)
	assert.Equal(t, "diff", rec.Commands[0].Args[0])
}

func TestExecutor_WriteMeta(t *testing.T) {
	rec := &executil.RecordingExecutor{
		Outputs: map[string][]byte{"hash-object": []byte("deadbeef\n")},
	}
	e := newTestExecutor(rec)

	require.NoError(t, e.WriteMeta(context.Background(), "review-main-feature", []byte("version: 1\n")))

	require.Len(t, rec.Commands, 2)
	assert.Equal(t, []string{"hash-object", "-w", "--stdin"}, rec.Commands[0].Args)
	assert.Equal(t, []byte("version: 1\n"), rec.Commands[0].Stdin)
	assert.Equal(t, []string{"update-ref", "refs/review-meta/review-main-feature", "deadbeef"}, rec.Commands[1].Args)
}

func TestExecutor_ReadMeta_None(t *testing.T) {
	rec := &executil.RecordingExecutor{
		Errors: map[string]error{"rev-parse": exitError(t, 1)},
	}
	e := newTestExecutor(rec)

	_, err := e.ReadMeta(context.Background(), "review-main-feature")
	require.ErrorIs(t, err, ErrNoMeta)
}

func TestExecutor_Commit(t *testing.T) {
	rec := &executil.RecordingExecutor{
		Outputs: map[string][]byte{"rev-parse": []byte("abc123\n")},
	}
	e := newTestExecutor(rec)

	sha, err := e.Commit(context.Background(), "approve")
	require.NoError(t, err)
	assert.Equal(t, "abc123", sha)

	require.Len(t, rec.Commands, 2)
	assert.Equal(t, []string{"commit", "-q", "-m", "approve"}, rec.Commands[0].Args)
}
