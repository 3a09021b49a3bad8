package treediff

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTree creates files under root. Keys ending in "/" create directories.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()

	for name, content := range files {
		fullPath := filepath.Join(root, filepath.FromSlash(name))
		if name[len(name)-1] == '/' {
			require.NoError(t, os.MkdirAll(fullPath, 0o755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(fullPath), 0o755))
		require.NoError(t, os.WriteFile(fullPath, []byte(content), 0o644))
	}
}

func TestDiff(t *testing.T) {
	t.Run("IdenticalTrees", func(t *testing.T) {
		left, right := t.TempDir(), t.TempDir()
		writeTree(t, left, map[string]string{"f.txt": "hi"})
		writeTree(t, right, map[string]string{"f.txt": "hi"})

		result, err := Diff(left, right)
		require.NoError(t, err)
		assert.True(t, result.Empty())
		assert.Empty(t, result.LeftOnly)
		assert.Empty(t, result.RightOnly)
		assert.Empty(t, result.DiffFiles)
	})

	t.Run("LeftOnlyFile", func(t *testing.T) {
		left, right := t.TempDir(), t.TempDir()
		writeTree(t, left, map[string]string{"a.txt": "a"})

		result, err := Diff(left, right)
		require.NoError(t, err)
		assert.Equal(t, []string{"a.txt"}, result.LeftOnly)
		assert.Empty(t, result.RightOnly)
		assert.Empty(t, result.DiffFiles)
	})

	t.Run("TypeMismatch", func(t *testing.T) {
		left, right := t.TempDir(), t.TempDir()
		writeTree(t, left, map[string]string{"x": "file"})
		writeTree(t, right, map[string]string{"x/": ""})

		result, err := Diff(left, right)
		require.NoError(t, err)
		assert.Equal(t, []string{"x"}, result.DiffFiles)
		assert.Empty(t, result.LeftOnly)
		assert.Empty(t, result.RightOnly)
	})

	t.Run("NestedDiff", func(t *testing.T) {
		left, right := t.TempDir(), t.TempDir()
		writeTree(t, left, map[string]string{"sub/f.txt": "1"})
		writeTree(t, right, map[string]string{"sub/f.txt": "2"})

		result, err := Diff(left, right)
		require.NoError(t, err)
		assert.Equal(t, []string{"sub/f.txt"}, result.DiffFiles)
	})

	t.Run("EmptyDirectoriesOnBothSides", func(t *testing.T) {
		left, right := t.TempDir(), t.TempDir()
		writeTree(t, left, map[string]string{"empty/": "", "deep/er/": ""})
		writeTree(t, right, map[string]string{"empty/": "", "deep/er/": ""})

		result, err := Diff(left, right)
		require.NoError(t, err)
		assert.True(t, result.Empty())
	})

	t.Run("SameSizeDifferentContent", func(t *testing.T) {
		left, right := t.TempDir(), t.TempDir()
		writeTree(t, left, map[string]string{"f.txt": "abc"})
		writeTree(t, right, map[string]string{"f.txt": "abd"})

		// Identical size and mtime must not be taken as equality.
		mtime, err := os.Stat(filepath.Join(left, "f.txt"))
		require.NoError(t, err)
		require.NoError(t, os.Chtimes(filepath.Join(right, "f.txt"), mtime.ModTime(), mtime.ModTime()))

		result, err := Diff(left, right)
		require.NoError(t, err)
		assert.Equal(t, []string{"f.txt"}, result.DiffFiles)
	})

	t.Run("SortedAcrossLevels", func(t *testing.T) {
		left, right := t.TempDir(), t.TempDir()
		writeTree(t, left, map[string]string{
			"a/b.txt": "1",
			"a-b.txt": "1",
			"z.txt":   "1",
			"m/n/o":   "1",
		})

		result, err := Diff(left, right)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "a-b.txt", "m", "z.txt"}, result.LeftOnly)

		writeTree(t, right, map[string]string{"a/": "", "m/n/": ""})
		result, err = Diff(left, right)
		require.NoError(t, err)
		assert.Equal(t, []string{"a-b.txt", "a/b.txt", "m/n/o", "z.txt"}, result.LeftOnly)
	})

	t.Run("CaseSensitiveNamesAreDistinct", func(t *testing.T) {
		if runtime.GOOS == "darwin" || runtime.GOOS == "windows" {
			t.Skip("case-insensitive filesystem")
		}

		left, right := t.TempDir(), t.TempDir()
		writeTree(t, left, map[string]string{"File.txt": "x"})
		writeTree(t, right, map[string]string{"file.txt": "x"})

		result, err := Diff(left, right)
		require.NoError(t, err)
		assert.Equal(t, []string{"File.txt"}, result.LeftOnly)
		assert.Equal(t, []string{"file.txt"}, result.RightOnly)
	})
}

func TestDiffProperties(t *testing.T) {
	left, right := t.TempDir(), t.TempDir()
	writeTree(t, left, map[string]string{
		"same.txt":       "same",
		"changed.txt":    "left",
		"left.txt":       "left",
		"sub/deep.txt":   "1",
		"sub/only/x.txt": "x",
		"kind":           "file",
	})
	writeTree(t, right, map[string]string{
		"same.txt":     "same",
		"changed.txt":  "right",
		"right.txt":    "right",
		"sub/deep.txt": "2",
		"kind/":        "",
	})

	t.Run("Idempotent", func(t *testing.T) {
		first, err := Diff(left, right)
		require.NoError(t, err)
		second, err := Diff(left, right)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("Symmetric", func(t *testing.T) {
		forward, err := Diff(left, right)
		require.NoError(t, err)
		backward, err := Diff(right, left)
		require.NoError(t, err)

		assert.Equal(t, forward.LeftOnly, backward.RightOnly)
		assert.Equal(t, forward.RightOnly, backward.LeftOnly)
		assert.Equal(t, forward.DiffFiles, backward.DiffFiles)
		assert.Equal(t, forward.Swap(), backward)
	})

	t.Run("Identity", func(t *testing.T) {
		result, err := Diff(left, left)
		require.NoError(t, err)
		assert.True(t, result.Empty())
	})

	t.Run("Classification", func(t *testing.T) {
		result, err := Diff(left, right)
		require.NoError(t, err)
		assert.Equal(t, []string{"left.txt", "sub/only"}, result.LeftOnly)
		assert.Equal(t, []string{"right.txt"}, result.RightOnly)
		assert.Equal(t, []string{"changed.txt", "kind", "sub/deep.txt"}, result.DiffFiles)
		assert.Equal(t, []Bucket{BucketLeftOnly, BucketRightOnly, BucketDiffFiles}, result.NonEmptyBuckets())
		assert.Equal(t, 6, result.Len())
	})
}

func TestDiffIgnore(t *testing.T) {
	left, right := t.TempDir(), t.TempDir()
	writeTree(t, left, map[string]string{
		".DS_Store":         "meta",
		"a/.DS_Store":       "meta",
		"a/b/c/.DS_Store":   "meta",
		"a/keep.txt":        "1",
		"build/out.bin":     "x",
		"notes.tmp":         "t",
		"sub/build/x/y.txt": "1",
		"sub/regular.txt":   "1",
		"sub/debug.tmp":     "1",
	})
	writeTree(t, right, map[string]string{
		"a/keep.txt":      "2",
		"a/b/c/.DS_Store": "other",
		"sub/regular.txt": "1",
	})

	t.Run("NamesAtEveryLevel", func(t *testing.T) {
		result, err := Diff(left, right, WithIgnore(".DS_Store"))
		require.NoError(t, err)

		for _, bucket := range []Bucket{BucketLeftOnly, BucketRightOnly, BucketDiffFiles} {
			for _, p := range result.Paths(bucket) {
				assert.NotContains(t, p, ".DS_Store")
			}
		}
		assert.Equal(t, []string{"a/keep.txt"}, result.DiffFiles)
		assert.Equal(t, []string{"build", "notes.tmp", "sub/build", "sub/debug.tmp"}, result.LeftOnly)
		assert.Empty(t, result.RightOnly)
	})

	t.Run("DirectoryNamesAreFilteredToo", func(t *testing.T) {
		result, err := Diff(left, right, WithIgnore(".DS_Store", "build"))
		require.NoError(t, err)
		assert.Equal(t, []string{"notes.tmp", "sub/debug.tmp"}, result.LeftOnly)
	})

	t.Run("Patterns", func(t *testing.T) {
		result, err := Diff(left, right, WithIgnore(".DS_Store"), WithIgnorePatterns("*.tmp", "bui{ld,lt}"))
		require.NoError(t, err)
		assert.Empty(t, result.LeftOnly)
		assert.Equal(t, []string{"a/keep.txt"}, result.DiffFiles)
	})

	t.Run("InvalidPattern", func(t *testing.T) {
		_, err := Diff(left, right, WithIgnorePatterns("[unterminated"))
		require.Error(t, err)
	})
}

func TestDiffMatchFunction(t *testing.T) {
	left, right := t.TempDir(), t.TempDir()
	writeTree(t, left, map[string]string{"a.txt": "one", "b.txt": "same", "sub/c.txt": "x"})
	writeTree(t, right, map[string]string{"a.txt": "two", "b.txt": "same", "sub/c.txt": "y"})

	t.Run("CalledForEveryCommonFile", func(t *testing.T) {
		var calls []string
		match := func(pathA, pathB string) (bool, error) {
			rel, err := filepath.Rel(left, pathA)
			require.NoError(t, err)
			calls = append(calls, filepath.ToSlash(rel))
			return true, nil
		}

		result, err := Diff(left, right, WithMatch(match))
		require.NoError(t, err)
		assert.True(t, result.Empty())
		assert.ElementsMatch(t, []string{"a.txt", "b.txt", "sub/c.txt"}, calls)
	})

	t.Run("AuthoritativeWhenStricter", func(t *testing.T) {
		never := func(string, string) (bool, error) { return false, nil }

		result, err := Diff(left, right, WithMatch(never))
		require.NoError(t, err)
		assert.Equal(t, []string{"a.txt", "b.txt", "sub/c.txt"}, result.DiffFiles)
	})

	t.Run("ErrorAbortsComparison", func(t *testing.T) {
		boom := errors.New("boom")
		failing := func(string, string) (bool, error) { return false, boom }

		result, err := Diff(left, right, WithMatch(failing))
		assert.Nil(t, result)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("NilKeepsByteEquality", func(t *testing.T) {
		result, err := Diff(left, right, WithMatch(nil))
		require.NoError(t, err)
		assert.Equal(t, []string{"a.txt", "sub/c.txt"}, result.DiffFiles)
	})
}

func TestDiffErrors(t *testing.T) {
	t.Run("MissingRoot", func(t *testing.T) {
		missing := filepath.Join(t.TempDir(), "does", "not", "exist")

		_, err := Diff(missing, t.TempDir())
		var notFound *DirectoryNotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, missing, notFound.Path)
		assert.EqualError(t, err, "directory not found: "+missing)

		_, err = Diff(t.TempDir(), missing)
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, missing, notFound.Path)
	})

	t.Run("RootIsFile", func(t *testing.T) {
		dir := t.TempDir()
		file := filepath.Join(dir, "file.txt")
		writeTree(t, dir, map[string]string{"file.txt": "x"})

		_, err := Diff(file, t.TempDir())
		var notFound *DirectoryNotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, file, notFound.Path)
		assert.EqualError(t, err, "directory not found: "+file+": not a directory")
	})

	t.Run("UnreadableSubdirectory", func(t *testing.T) {
		if runtime.GOOS == "windows" || os.Geteuid() == 0 {
			t.Skip("permissions are not enforced")
		}

		left, right := t.TempDir(), t.TempDir()
		writeTree(t, left, map[string]string{"locked/f.txt": "1"})
		writeTree(t, right, map[string]string{"locked/f.txt": "1"})

		locked := filepath.Join(left, "locked")
		require.NoError(t, os.Chmod(locked, 0o000))
		t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

		result, err := Diff(left, right)
		assert.Nil(t, result)
		var traversal *TraversalError
		require.ErrorAs(t, err, &traversal)
		assert.Equal(t, locked, traversal.Path)
	})

	t.Run("SymlinkCycle", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("symlinks need privileges")
		}

		left, right := t.TempDir(), t.TempDir()
		require.NoError(t, os.Symlink(".", filepath.Join(left, "loop")))
		require.NoError(t, os.Symlink(".", filepath.Join(right, "loop")))

		_, err := Diff(left, right)
		var traversal *TraversalError
		require.ErrorAs(t, err, &traversal)
	})
}

func TestDiffSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges")
	}

	left, right := t.TempDir(), t.TempDir()
	writeTree(t, left, map[string]string{"target.txt": "same", "dir/f.txt": "1"})
	writeTree(t, right, map[string]string{"target.txt": "same", "link.txt": "same", "dir/f.txt": "1"})
	require.NoError(t, os.Symlink("target.txt", filepath.Join(left, "link.txt")))
	require.NoError(t, os.Symlink("dir", filepath.Join(left, "dirlink")))
	require.NoError(t, os.Symlink("dir", filepath.Join(right, "dirlink")))
	require.NoError(t, os.Symlink("missing", filepath.Join(left, "dangling")))
	require.NoError(t, os.Symlink("missing", filepath.Join(right, "dangling")))

	result, err := Diff(left, right)
	require.NoError(t, err)
	assert.Empty(t, result.LeftOnly)
	assert.Empty(t, result.RightOnly)
	assert.Equal(t, []string{"dangling"}, result.DiffFiles)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		left    EntryType
		inLeft  bool
		right   EntryType
		inRight bool
		want    EntryKind
	}{
		{"left only", TypeFile, true, TypeFile, false, KindLeftOnly},
		{"right only", TypeDirectory, false, TypeDirectory, true, KindRightOnly},
		{"both files", TypeFile, true, TypeFile, true, KindBothFile},
		{"both directories", TypeDirectory, true, TypeDirectory, true, KindBothDir},
		{"file and directory", TypeFile, true, TypeDirectory, true, KindTypeMismatch},
		{"directory and file", TypeDirectory, true, TypeFile, true, KindTypeMismatch},
		{"irregular entries", TypeOther, true, TypeOther, true, KindTypeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.left, tt.inLeft, tt.right, tt.inRight))
		})
	}
}
