package git

import (
	"fmt"
	"strings"

	sgdiff "github.com/sourcegraph/go-diff/diff"
)

// FileChange summarizes the changes a diff makes to a single file.
type FileChange struct {
	Path      string
	Hunks     int
	Additions int
	Deletions int
}

// Summary is a structured view over a textual diff: the ordered files it
// touches and aggregate line counts.
type Summary struct {
	Files     []FileChange
	Additions int
	Deletions int
}

// Empty reports whether the diff touches no files.
func (s Summary) Empty() bool { return len(s.Files) == 0 }

// Hunks returns the total number of hunks across all files.
func (s Summary) Hunks() int {
	n := 0
	for _, f := range s.Files {
		n += f.Hunks
	}
	return n
}

// ParseDiff parses a unified diff into per-file hunk and line statistics.
func ParseDiff(patch string) (Summary, error) {
	if strings.TrimSpace(patch) == "" {
		return Summary{}, nil
	}

	fds, err := sgdiff.ParseMultiFileDiff([]byte(patch))
	if err != nil {
		return Summary{}, fmt.Errorf("parse diff: %w", err)
	}

	var s Summary
	for _, fd := range fds {
		stat := fd.Stat()
		fc := FileChange{
			Path:      changePath(fd),
			Hunks:     len(fd.Hunks),
			Additions: int(stat.Added + stat.Changed),
			Deletions: int(stat.Deleted + stat.Changed),
		}
		s.Files = append(s.Files, fc)
		s.Additions += fc.Additions
		s.Deletions += fc.Deletions
	}
	return s, nil
}

// changePath returns the post-change path of a file diff, falling back to
// the original path for deletions.
func changePath(fd *sgdiff.FileDiff) string {
	name := fd.NewName
	if name == "" || name == "/dev/null" {
		name = fd.OrigName
	}
	name = strings.TrimPrefix(name, "b/")
	name = strings.TrimPrefix(name, "a/")
	return name
}
