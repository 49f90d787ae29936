// Package gittest provides an in-memory git.Repo implementation so the
// review engine can be tested without a real repository.
//
// The model is deliberately small: commits are immutable (tree, parents,
// subject), branches are refs into the commit DAG, and the index and working
// tree are flat path->content maps that follow the checked-out branch.
package gittest

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/colonyops/cresca/internal/core/git"
)

type commitObj struct {
	sha     string
	parents []string
	subject string
	tree    map[string]string
}

// Repo is an in-memory git.Repo.
type Repo struct {
	commits  map[string]*commitObj
	branches map[string]string
	current  string
	index    map[string]string
	worktree map[string]string
	meta     map[string][]byte

	// LockHeld simulates another process holding the repository lock.
	LockHeld bool
	// CommitErr, when set, is returned by the next Commit call and then
	// cleared. Used to exercise rollback paths.
	CommitErr error
	// ApplyErr, when set, is returned by the next ApplyDiff or
	// ApplyDiffToWorktree call and then cleared. Used to exercise
	// rollback paths.
	ApplyErr error
}

// New returns an empty repository. Seed history with WriteCommit.
func New() *Repo {
	return &Repo{
		commits:  map[string]*commitObj{},
		branches: map[string]string{},
		index:    map[string]string{},
		worktree: map[string]string{},
		meta:     map[string][]byte{},
	}
}

// ---- history builders (test-side API) ----

// WriteCommit appends a commit to branch, creating the branch from the
// current tip of nothing if it does not exist. Edits are applied on top of
// the branch tree; an empty value removes the file. Returns the commit hash.
func (r *Repo) WriteCommit(branch, subject string, edits map[string]string) string {
	var parents []string
	tree := map[string]string{}
	if tip, ok := r.branches[branch]; ok {
		parents = []string{tip}
		tree = copyTree(r.commits[tip].tree)
	}
	for path, content := range edits {
		if content == "" {
			delete(tree, path)
			continue
		}
		tree[path] = content
	}

	sha := r.newCommit(subject, parents, tree)
	r.branches[branch] = sha
	if r.current == branch {
		r.checkoutTree(sha)
	} else if r.current == "" {
		r.current = branch
		r.checkoutTree(sha)
	}
	return sha
}

// ForkBranch creates a branch pointing at the given ref without checking
// it out.
func (r *Repo) ForkBranch(name, at string) {
	sha, err := r.resolve(at)
	if err != nil {
		panic(fmt.Sprintf("gittest: fork %s at %s: %v", name, at, err))
	}
	r.branches[name] = sha
}

// ---- staging and worktree helpers (test-side API) ----

// Stage copies the working tree content of path into the index, mimicking
// `git add`.
func (r *Repo) Stage(path string) {
	if content, ok := r.worktree[path]; ok {
		r.index[path] = content
		return
	}
	delete(r.index, path)
}

// Unstage resets the index entry for path back to the head tree, mimicking
// `git restore --staged`.
func (r *Repo) Unstage(path string) {
	head := r.headTree()
	if content, ok := head[path]; ok {
		r.index[path] = content
		return
	}
	delete(r.index, path)
}

// UnstageAll resets the whole index to the head tree.
func (r *Repo) UnstageAll() {
	r.index = copyTree(r.headTree())
}

// WriteWorktree writes a file in the working tree only, simulating an edit
// made outside the tool.
func (r *Repo) WriteWorktree(path, content string) {
	r.worktree[path] = content
}

// ---- inspection helpers (test-side API) ----

// BranchHead returns the tip hash of a branch, or "" if it does not exist.
func (r *Repo) BranchHead(name string) string { return r.branches[name] }

// BranchTree returns a copy of the tree at a branch tip.
func (r *Repo) BranchTree(name string) map[string]string {
	tip, ok := r.branches[name]
	if !ok {
		return nil
	}
	return copyTree(r.commits[tip].tree)
}

// WorktreeFiles returns a copy of the working tree contents.
func (r *Repo) WorktreeFiles() map[string]string { return copyTree(r.worktree) }

// IndexFiles returns a copy of the index contents.
func (r *Repo) IndexFiles() map[string]string { return copyTree(r.index) }

// Log returns the subjects of a branch's first-parent history, oldest first.
func (r *Repo) Log(branch string) []string {
	var subjects []string
	for sha := r.branches[branch]; sha != ""; {
		c := r.commits[sha]
		subjects = append(subjects, c.subject)
		if len(c.parents) == 0 {
			break
		}
		sha = c.parents[0]
	}
	for i, j := 0, len(subjects)-1; i < j; i, j = i+1, j-1 {
		subjects[i], subjects[j] = subjects[j], subjects[i]
	}
	return subjects
}

// Meta returns the raw metadata blob attached to branch, or nil.
func (r *Repo) Meta(branch string) []byte { return r.meta[branch] }

// ---- git.Repo implementation ----

func (r *Repo) ResolveRef(_ context.Context, ref string) (string, error) {
	return r.resolve(ref)
}

func (r *Repo) resolve(ref string) (string, error) {
	if sha, ok := r.branches[ref]; ok {
		return sha, nil
	}
	if _, ok := r.commits[ref]; ok {
		return ref, nil
	}
	if len(ref) >= 4 {
		match := ""
		for sha := range r.commits {
			if strings.HasPrefix(sha, ref) {
				if match != "" {
					return "", fmt.Errorf("%q is ambiguous: %w", ref, git.ErrUnknownRef)
				}
				match = sha
			}
		}
		if match != "" {
			return match, nil
		}
	}
	return "", fmt.Errorf("%q: %w", ref, git.ErrUnknownRef)
}

func (r *Repo) MergeBase(_ context.Context, a, b string) (string, error) {
	shaA, err := r.resolve(a)
	if err != nil {
		return "", err
	}
	shaB, err := r.resolve(b)
	if err != nil {
		return "", err
	}

	ancestorsA := r.ancestors(shaA)
	ancestorsA[shaA] = true
	ancestorsB := r.ancestors(shaB)
	ancestorsB[shaB] = true

	// Deepest common ancestor. Sufficient for tree-shaped test histories.
	best, bestDepth := "", -1
	for sha := range ancestorsA {
		if !ancestorsB[sha] {
			continue
		}
		if d := r.depth(sha); d > bestDepth {
			best, bestDepth = sha, d
		}
	}
	if best == "" {
		return "", fmt.Errorf("no common ancestor of %s and %s", a, b)
	}
	return best, nil
}

func (r *Repo) RevList(_ context.Context, base, head string) ([]string, error) {
	baseSHA, err := r.resolve(base)
	if err != nil {
		return nil, err
	}
	headSHA, err := r.resolve(head)
	if err != nil {
		return nil, err
	}

	exclude := r.ancestors(baseSHA)
	exclude[baseSHA] = true

	var out []string
	seen := map[string]bool{}
	var visit func(sha string)
	visit = func(sha string) {
		if seen[sha] || exclude[sha] {
			return
		}
		seen[sha] = true
		for _, p := range r.commits[sha].parents {
			visit(p)
		}
		// Post-order emission yields topological oldest-first order.
		out = append(out, sha)
	}
	visit(headSHA)
	return out, nil
}

func (r *Repo) IsAncestor(_ context.Context, a, b string) (bool, error) {
	shaA, err := r.resolve(a)
	if err != nil {
		return false, err
	}
	shaB, err := r.resolve(b)
	if err != nil {
		return false, err
	}
	if shaA == shaB {
		return true, nil
	}
	return r.ancestors(shaB)[shaA], nil
}

func (r *Repo) CurrentBranch(_ context.Context) (string, error) {
	if r.current == "" {
		return "", errors.New("no branch checked out")
	}
	return r.current, nil
}

func (r *Repo) BranchExists(_ context.Context, name string) (bool, error) {
	_, ok := r.branches[name]
	return ok, nil
}

func (r *Repo) CreateBranch(_ context.Context, name, at string) error {
	if _, exists := r.branches[name]; exists {
		return fmt.Errorf("branch %s already exists", name)
	}
	sha, err := r.resolve(at)
	if err != nil {
		return err
	}
	r.branches[name] = sha
	r.current = name
	r.checkoutTree(sha)
	return nil
}

func (r *Repo) Checkout(_ context.Context, name string) error {
	sha, ok := r.branches[name]
	if !ok {
		return fmt.Errorf("%q: %w", name, git.ErrUnknownRef)
	}
	r.current = name
	r.checkoutTree(sha)
	return nil
}

func (r *Repo) Head(_ context.Context) (string, error) {
	if r.current == "" {
		return "", errors.New("no branch checked out")
	}
	return r.branches[r.current], nil
}

func (r *Repo) UpdateBranch(_ context.Context, name, sha string) error {
	resolved, err := r.resolve(sha)
	if err != nil {
		return err
	}
	if _, ok := r.branches[name]; !ok {
		return fmt.Errorf("%q: %w", name, git.ErrUnknownRef)
	}
	r.branches[name] = resolved
	if r.current == name {
		r.checkoutTree(resolved)
	}
	return nil
}

func (r *Repo) DeleteBranch(_ context.Context, name string) error {
	if r.current == name {
		return fmt.Errorf("cannot delete checked-out branch %s", name)
	}
	if _, ok := r.branches[name]; !ok {
		return fmt.Errorf("%q: %w", name, git.ErrUnknownRef)
	}
	delete(r.branches, name)
	return nil
}

func (r *Repo) CherryPick(_ context.Context, sha string) error {
	resolved, err := r.resolve(sha)
	if err != nil {
		return err
	}
	c := r.commits[resolved]

	parentTree := map[string]string{}
	if len(c.parents) > 0 {
		parentTree = r.commits[c.parents[0]].tree
	}

	newTree := copyTree(r.headTree())
	applyDelta(newTree, treeDelta(parentTree, c.tree))

	head, err := r.Head(context.Background())
	if err != nil {
		return err
	}
	newSHA := r.newCommit(c.subject, []string{head}, newTree)
	r.branches[r.current] = newSHA
	r.checkoutTree(newSHA)
	return nil
}

func (r *Repo) Diff(_ context.Context, from, to string) (string, error) {
	fromSHA, err := r.resolve(from)
	if err != nil {
		return "", err
	}
	toSHA, err := r.resolve(to)
	if err != nil {
		return "", err
	}
	return renderDiff(r.commits[fromSHA].tree, r.commits[toSHA].tree), nil
}

func (r *Repo) StagedDiff(_ context.Context) (string, error) {
	return renderDiff(r.headTree(), r.index), nil
}

func (r *Repo) WorktreeDiff(_ context.Context, commit string) (string, error) {
	sha, err := r.resolve(commit)
	if err != nil {
		return "", err
	}
	return renderDiff(r.commits[sha].tree, r.worktree), nil
}

func (r *Repo) ApplyDiff(_ context.Context, from, to string) error {
	if err := r.takeApplyErr(); err != nil {
		return err
	}
	delta, err := r.deltaBetween(from, to)
	if err != nil {
		return err
	}
	applyDelta(r.index, delta)
	applyDelta(r.worktree, delta)
	return nil
}

func (r *Repo) ApplyDiffToWorktree(_ context.Context, from, to string) error {
	if err := r.takeApplyErr(); err != nil {
		return err
	}
	delta, err := r.deltaBetween(from, to)
	if err != nil {
		return err
	}
	applyDelta(r.worktree, delta)
	return nil
}

func (r *Repo) Commit(_ context.Context, message string) (string, error) {
	if err := r.CommitErr; err != nil {
		r.CommitErr = nil
		return "", err
	}
	head, err := r.Head(context.Background())
	if err != nil {
		return "", err
	}
	sha := r.newCommit(message, []string{head}, copyTree(r.index))
	r.branches[r.current] = sha
	return sha, nil
}

func (r *Repo) IsClean(_ context.Context) (bool, error) {
	head := r.headTree()
	return treesEqual(r.worktree, head) && treesEqual(r.index, head), nil
}

func (r *Repo) Locked(_ context.Context) (bool, error) {
	return r.LockHeld, nil
}

func (r *Repo) ReadMeta(_ context.Context, branch string) ([]byte, error) {
	data, ok := r.meta[branch]
	if !ok {
		return nil, fmt.Errorf("%s: %w", branch, git.ErrNoMeta)
	}
	return append([]byte(nil), data...), nil
}

func (r *Repo) WriteMeta(_ context.Context, branch string, data []byte) error {
	r.meta[branch] = append([]byte(nil), data...)
	return nil
}

func (r *Repo) DeleteMeta(_ context.Context, branch string) error {
	delete(r.meta, branch)
	return nil
}

// ---- internals ----

func (r *Repo) takeApplyErr() error {
	err := r.ApplyErr
	r.ApplyErr = nil
	return err
}

func (r *Repo) newCommit(subject string, parents []string, tree map[string]string) string {
	h := sha1.New()
	fmt.Fprintf(h, "subject %s\n", subject)
	for _, p := range parents {
		fmt.Fprintf(h, "parent %s\n", p)
	}
	for _, path := range sortedPaths(tree) {
		fmt.Fprintf(h, "file %s %q\n", path, tree[path])
	}
	sha := hex.EncodeToString(h.Sum(nil))

	r.commits[sha] = &commitObj{sha: sha, parents: parents, subject: subject, tree: tree}
	return sha
}

func (r *Repo) headTree() map[string]string {
	if r.current == "" {
		return map[string]string{}
	}
	return r.commits[r.branches[r.current]].tree
}

func (r *Repo) checkoutTree(sha string) {
	tree := r.commits[sha].tree
	r.index = copyTree(tree)
	r.worktree = copyTree(tree)
}

func (r *Repo) ancestors(sha string) map[string]bool {
	out := map[string]bool{}
	queue := append([]string(nil), r.commits[sha].parents...)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if out[cur] {
			continue
		}
		out[cur] = true
		queue = append(queue, r.commits[cur].parents...)
	}
	return out
}

func (r *Repo) depth(sha string) int {
	c := r.commits[sha]
	best := 0
	for _, p := range c.parents {
		if d := r.depth(p) + 1; d > best {
			best = d
		}
	}
	return best
}

func (r *Repo) deltaBetween(from, to string) (map[string]*string, error) {
	fromSHA, err := r.resolve(from)
	if err != nil {
		return nil, err
	}
	toSHA, err := r.resolve(to)
	if err != nil {
		return nil, err
	}
	return treeDelta(r.commits[fromSHA].tree, r.commits[toSHA].tree), nil
}

// treeDelta computes the file-level changes turning tree a into tree b.
// A nil value marks a deletion.
func treeDelta(a, b map[string]string) map[string]*string {
	delta := map[string]*string{}
	for path, content := range b {
		if old, ok := a[path]; !ok || old != content {
			c := content
			delta[path] = &c
		}
	}
	for path := range a {
		if _, ok := b[path]; !ok {
			delta[path] = nil
		}
	}
	return delta
}

func applyDelta(tree map[string]string, delta map[string]*string) {
	for path, content := range delta {
		if content == nil {
			delete(tree, path)
			continue
		}
		tree[path] = *content
	}
}

// renderDiff produces a unified diff between two trees, formatted closely
// enough to git's output that it parses with sourcegraph/go-diff.
func renderDiff(a, b map[string]string) string {
	var sb strings.Builder
	for _, path := range sortedPaths(union(a, b)) {
		oldContent, oldOK := a[path]
		newContent, newOK := b[path]
		if oldOK && newOK && oldContent == newContent {
			continue
		}

		fromFile, toFile := "a/"+path, "b/"+path
		var aLines, bLines []string
		if oldOK {
			aLines = splitLines(oldContent)
		} else {
			fromFile = "/dev/null"
		}
		if newOK {
			bLines = splitLines(newContent)
		} else {
			toFile = "/dev/null"
		}

		text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        aLines,
			B:        bLines,
			FromFile: fromFile,
			ToFile:   toFile,
			Context:  3,
		})
		if err != nil {
			panic(fmt.Sprintf("gittest: render diff for %s: %v", path, err))
		}

		fmt.Fprintf(&sb, "diff --git a/%s b/%s\n", path, path)
		sb.WriteString(text)
	}
	return sb.String()
}

// splitLines splits content keeping the newlines, without the phantom empty
// trailing element difflib.SplitLines appends (which inflates diff counts by
// one line per file).
func splitLines(content string) []string {
	lines := strings.SplitAfter(content, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func union(a, b map[string]string) map[string]string {
	out := map[string]string{}
	for path, content := range a {
		out[path] = content
	}
	for path, content := range b {
		out[path] = content
	}
	return out
}

func copyTree(tree map[string]string) map[string]string {
	out := make(map[string]string, len(tree))
	for path, content := range tree {
		out[path] = content
	}
	return out
}

func treesEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for path, content := range a {
		if other, ok := b[path]; !ok || other != content {
			return false
		}
	}
	return true
}

func sortedPaths(tree map[string]string) []string {
	paths := make([]string, 0, len(tree))
	for path := range tree {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
