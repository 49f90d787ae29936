package review

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRange(t *testing.T) {
	r, shas := seedRepo()

	tests := []struct {
		name          string
		opts          RangeOptions
		wantCommits   []string
		wantPrefix    []string
		wantInScope   []string
		wantEffective string
	}{
		{
			name:          "full range",
			opts:          RangeOptions{Target: "main", Source: "feature"},
			wantCommits:   []string{shas["B"], shas["C"], shas["D"]},
			wantPrefix:    nil,
			wantInScope:   []string{shas["B"], shas["C"], shas["D"]},
			wantEffective: shas["D"],
		},
		{
			name:          "skip-to and stop-at",
			opts:          RangeOptions{Target: "main", Source: "feature", SkipTo: shas["B"], StopAt: shas["C"]},
			wantCommits:   []string{shas["B"], shas["C"], shas["D"]},
			wantPrefix:    []string{shas["B"]},
			wantInScope:   []string{shas["C"]},
			wantEffective: shas["C"],
		},
		{
			name:          "skip-to equals stop-at",
			opts:          RangeOptions{Target: "main", Source: "feature", SkipTo: shas["C"], StopAt: shas["C"]},
			wantCommits:   []string{shas["B"], shas["C"], shas["D"]},
			wantPrefix:    []string{shas["B"], shas["C"]},
			wantInScope:   nil,
			wantEffective: shas["C"],
		},
		{
			name:          "abbreviated hashes",
			opts:          RangeOptions{Target: "main", Source: "feature", SkipTo: shas["B"][:8], StopAt: shas["D"][:8]},
			wantCommits:   []string{shas["B"], shas["C"], shas["D"]},
			wantPrefix:    []string{shas["B"]},
			wantInScope:   []string{shas["C"], shas["D"]},
			wantEffective: shas["D"],
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng, err := ResolveRange(context.Background(), r, tt.opts)
			require.NoError(t, err)

			assert.Equal(t, shas["A"], rng.Base)
			assert.Equal(t, tt.wantCommits, rng.Commits)
			assert.Equal(t, tt.wantPrefix, rng.Prefix())
			if tt.wantInScope == nil {
				assert.Empty(t, rng.InScope())
			} else {
				assert.Equal(t, tt.wantInScope, rng.InScope())
			}
			assert.Equal(t, tt.wantEffective, rng.EffectiveHead())
		})
	}
}

func TestResolveRange_Errors(t *testing.T) {
	r, shas := seedRepo()

	// E is reachable from main but not inside merge-base..feature.
	shaE := r.WriteCommit("main", "hotfix", map[string]string{"hotfix.go": "package main\n"})

	tests := []struct {
		name    string
		opts    RangeOptions
		wantErr error
	}{
		{
			name:    "unknown target",
			opts:    RangeOptions{Target: "nope", Source: "feature"},
			wantErr: ErrRefResolution,
		},
		{
			name:    "unknown source",
			opts:    RangeOptions{Target: "main", Source: "nope"},
			wantErr: ErrRefResolution,
		},
		{
			name:    "unknown skip-to",
			opts:    RangeOptions{Target: "main", Source: "feature", SkipTo: "f00dface"},
			wantErr: ErrRefResolution,
		},
		{
			name:    "skip-to outside range",
			opts:    RangeOptions{Target: "main", Source: "feature", SkipTo: shaE},
			wantErr: ErrRefResolution,
		},
		{
			name:    "stop-at outside range",
			opts:    RangeOptions{Target: "main", Source: "feature", StopAt: shaE},
			wantErr: ErrRefResolution,
		},
		{
			name:    "skip-to after stop-at",
			opts:    RangeOptions{Target: "main", Source: "feature", SkipTo: shas["D"], StopAt: shas["B"]},
			wantErr: ErrRangeOrder,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveRange(context.Background(), r, tt.opts)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}
