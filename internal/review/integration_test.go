package review

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/cresca/internal/core/config"
	"github.com/colonyops/cresca/internal/core/git"
	"github.com/colonyops/cresca/pkg/executil"
)

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	out, err := exec.Command("git", append([]string{"-C", dir}, args...)...).CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
}

func writeFile(t *testing.T, dir, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, path), []byte(content), 0o644))
}

func commitFiles(t *testing.T, dir, message string, files map[string]string) {
	t.Helper()
	for path, content := range files {
		writeFile(t, dir, path, content)
	}
	runGit(t, dir, "add", "-A")
	runGit(t, dir, "commit", "-q", "-m", message)
}

func initRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	dir := t.TempDir()
	runGit(t, dir, "init", "-q")
	runGit(t, dir, "checkout", "-q", "-b", "main")
	runGit(t, dir, "config", "user.name", "test")
	runGit(t, dir, "config", "user.email", "test@example.com")
	runGit(t, dir, "config", "commit.gpgsign", "false")
	return dir
}

// Exercises the CLI-backed collaborator across repeated syncs. The second
// sync is the interesting one: the first sync leaves a brand-new file
// pending in the worktree, and the dirty check before the next sync must not
// mistake it for a divergence.
func TestService_RealGit_RepeatedSync(t *testing.T) {
	dir := initRepo(t)
	commitFiles(t, dir, "base", map[string]string{"readme.md": "# readme\n"})

	runGit(t, dir, "checkout", "-q", "-b", "feature")
	commitFiles(t, dir, "add auth", map[string]string{"auth.go": "package auth\n"})
	runGit(t, dir, "checkout", "-q", "main")

	cfg := config.DefaultConfig()
	repo := git.NewExecutor("git", dir, &executil.RealExecutor{}, zerolog.Nop())
	svc := NewService(repo, &cfg, zerolog.Nop())
	ctx := context.Background()
	opts := ReviewOptions{Target: "main", Source: "feature"}

	res, err := svc.Review(ctx, opts)
	require.NoError(t, err)
	require.True(t, res.Created)

	_, err = svc.Approve(ctx, "first pass")
	require.NoError(t, err)

	// Advance the source in a linked worktree so the review branch keeps
	// its checkout.
	wt := filepath.Join(t.TempDir(), "feature")
	runGit(t, dir, "worktree", "add", "-q", wt, "feature")
	commitFiles(t, wt, "add extra", map[string]string{"extra.go": "package extra\n"})

	res, err = svc.Review(ctx, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, res.NewCommits)
	require.Len(t, res.Pending.Files, 1)
	assert.Equal(t, "extra.go", res.Pending.Files[0].Path)

	// extra.go is still pending; a further upstream change to it must merge
	// on top instead of failing the dirty check.
	commitFiles(t, wt, "extend extra", map[string]string{"extra.go": "package extra\n\nconst More = 1\n"})

	res, err = svc.Review(ctx, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, res.NewCommits)
	require.Len(t, res.Pending.Files, 1)

	data, err := os.ReadFile(filepath.Join(dir, "extra.go"))
	require.NoError(t, err)
	assert.Equal(t, "package extra\n\nconst More = 1\n", string(data))
}
