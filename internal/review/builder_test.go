package review

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBranchBuilder_Build(t *testing.T) {
	r, shas := seedRepo()
	rng := mustResolve(t, r, RangeOptions{Target: "main", Source: "feature"})

	b := NewBranchBuilder(r, zerolog.Nop())
	st, err := b.Build(context.Background(), "review-main-feature", rng)
	require.NoError(t, err)

	// Branch sits at the merge-base with the full in-scope diff staged.
	assert.Equal(t, shas["A"], r.BranchHead("review-main-feature"))
	assert.Equal(t, []string{"base"}, r.Log("review-main-feature"))
	assert.Equal(t, r.BranchTree("feature"), r.WorktreeFiles())
	assert.Equal(t, r.BranchTree("feature"), r.IndexFiles())

	assert.Equal(t, shas["D"], st.LastSynced)
	assert.Equal(t, shas["A"], st.Base)
	assert.Equal(t, "main", st.Target)
	assert.Equal(t, "feature", st.Source)
	assert.NotNil(t, r.Meta("review-main-feature"))
}

func TestBranchBuilder_Build_SkipToStopAt(t *testing.T) {
	r, shas := seedRepo()
	rng := mustResolve(t, r, RangeOptions{
		Target: "main",
		Source: "feature",
		SkipTo: shas["B"],
		StopAt: shas["C"],
	})

	b := NewBranchBuilder(r, zerolog.Nop())
	st, err := b.Build(context.Background(), "review-main-feature", rng)
	require.NoError(t, err)

	// The skipped commit is replayed with its own boundary, not squashed.
	assert.Equal(t, []string{"base", "add auth"}, r.Log("review-main-feature"))

	worktree := r.WorktreeFiles()
	assert.Contains(t, worktree, "auth.go")
	assert.Contains(t, worktree, "api.go")
	assert.NotContains(t, worktree, "docs.md", "commits past stop-at must not appear")

	assert.Equal(t, shas["C"], st.LastSynced)
	assert.Equal(t, shas["B"], st.SkipTo)
	assert.Equal(t, shas["C"], st.StopAt)
}

func TestBranchBuilder_Build_DirtyWorktree(t *testing.T) {
	r, _ := seedRepo()
	r.WriteWorktree("readme.md", "local edit\n")
	rng := mustResolve(t, r, RangeOptions{Target: "main", Source: "feature"})

	b := NewBranchBuilder(r, zerolog.Nop())
	_, err := b.Build(context.Background(), "review-main-feature", rng)
	require.ErrorIs(t, err, ErrDirtyState)

	exists, err := r.BranchExists(context.Background(), "review-main-feature")
	require.NoError(t, err)
	assert.False(t, exists)
}
