package review

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/cresca/internal/core/git"
	"github.com/colonyops/cresca/internal/core/git/gittest"
)

func TestSessionState_RoundTrip(t *testing.T) {
	r, _ := seedRepo()

	in := &SessionState{
		Target:     "main",
		Source:     "feature",
		Base:       "aaaa",
		LastSynced: "bbbb",
		SkipTo:     "cccc",
	}
	require.NoError(t, SaveState(context.Background(), r, "some-branch", in))

	out, err := LoadState(context.Background(), r, "some-branch")
	require.NoError(t, err)

	assert.Equal(t, stateVersion, out.Version)
	assert.Equal(t, "main", out.Target)
	assert.Equal(t, "feature", out.Source)
	assert.Equal(t, "aaaa", out.Base)
	assert.Equal(t, "bbbb", out.LastSynced)
	assert.Equal(t, "cccc", out.SkipTo)
	assert.Empty(t, out.StopAt)
	assert.False(t, out.UpdatedAt.IsZero())
}

func TestLoadState_NoMeta(t *testing.T) {
	r := gittest.New()
	r.WriteCommit("main", "base", map[string]string{"readme.md": "hi\n"})

	_, err := LoadState(context.Background(), r, "main")
	require.ErrorIs(t, err, git.ErrNoMeta)
}

func TestLoadState_UnsupportedVersion(t *testing.T) {
	r, _ := seedRepo()
	require.NoError(t, r.WriteMeta(context.Background(), "main", []byte("version: 99\n")))

	_, err := LoadState(context.Background(), r, "main")
	require.ErrorContains(t, err, "unsupported session state version")
}

func TestLoadState_CorruptMetadata(t *testing.T) {
	r, _ := seedRepo()
	require.NoError(t, r.WriteMeta(context.Background(), "main", []byte("{not yaml")))

	_, err := LoadState(context.Background(), r, "main")
	require.ErrorContains(t, err, "parse session state")
}
