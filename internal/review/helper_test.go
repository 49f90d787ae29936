package review

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/cresca/internal/core/config"
	"github.com/colonyops/cresca/internal/core/git/gittest"
)

// seedRepo builds the history most tests start from:
//
//	main:    A
//	feature: A--B--C--D
//
// where B adds auth.go, C adds api.go, and D adds docs.md. The returned map
// gives the commit hashes by letter.
func seedRepo() (*gittest.Repo, map[string]string) {
	r := gittest.New()
	shas := map[string]string{}
	shas["A"] = r.WriteCommit("main", "base", map[string]string{"readme.md": "# readme\n"})
	r.ForkBranch("feature", "main")
	shas["B"] = r.WriteCommit("feature", "add auth", map[string]string{"auth.go": "package auth\n"})
	shas["C"] = r.WriteCommit("feature", "add api", map[string]string{"api.go": "package api\n"})
	shas["D"] = r.WriteCommit("feature", "add docs", map[string]string{"docs.md": "# docs\n"})
	return r, shas
}

func newTestService(r *gittest.Repo) *Service {
	cfg := config.DefaultConfig()
	return NewService(r, &cfg, zerolog.Nop())
}

func mustReview(t *testing.T, s *Service, opts ReviewOptions) *ReviewResult {
	t.Helper()
	res, err := s.Review(context.Background(), opts)
	require.NoError(t, err)
	return res
}

func mustResolve(t *testing.T, r *gittest.Repo, opts RangeOptions) *ReviewRange {
	t.Helper()
	rng, err := ResolveRange(context.Background(), r, opts)
	require.NoError(t, err)
	return rng
}
