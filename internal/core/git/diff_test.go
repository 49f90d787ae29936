package git

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePatch = `diff --git a/server.go b/server.go
--- a/server.go
+++ b/server.go
@@ -1,2 +1,3 @@
 package server
+
 import "net/http"
@@ -10,4 +11,3 @@
 func stop() {
-	cancel()
 	wg.Wait()
 }
diff --git a/util.go b/util.go
--- /dev/null
+++ b/util.go
@@ -0,0 +1,2 @@
+package server
+
`

func TestParseDiff(t *testing.T) {
	sum, err := ParseDiff(samplePatch)
	require.NoError(t, err)

	require.Len(t, sum.Files, 2)
	assert.Equal(t, FileChange{Path: "server.go", Hunks: 2, Additions: 1, Deletions: 1}, sum.Files[0])
	assert.Equal(t, FileChange{Path: "util.go", Hunks: 1, Additions: 2, Deletions: 0}, sum.Files[1])

	assert.Equal(t, 3, sum.Additions)
	assert.Equal(t, 1, sum.Deletions)
	assert.Equal(t, 3, sum.Hunks())
	assert.False(t, sum.Empty())
}

func TestParseDiff_DeletedFile(t *testing.T) {
	patch := `diff --git a/old.go b/old.go
--- a/old.go
+++ /dev/null
@@ -1,1 +0,0 @@
-package old
`

	sum, err := ParseDiff(patch)
	require.NoError(t, err)
	require.Len(t, sum.Files, 1)
	assert.Equal(t, "old.go", sum.Files[0].Path)
	assert.Equal(t, 1, sum.Files[0].Deletions)
}

func TestParseDiff_Empty(t *testing.T) {
	sum, err := ParseDiff("  \n")
	require.NoError(t, err)
	assert.True(t, sum.Empty())
	assert.Zero(t, sum.Hunks())
}

func TestParseDiff_MalformedHunk(t *testing.T) {
	patch := `diff --git a/x.go b/x.go
--- a/x.go
+++ b/x.go
@@ bogus @@
 line
`

	_, err := ParseDiff(patch)
	require.Error(t, err)
}
