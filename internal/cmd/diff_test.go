package cmd

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffCommand(t *testing.T) {
	left := writeTree(t, t.TempDir(), map[string]string{
		"same.txt":      "same",
		"left.txt":      "l",
		"changed.txt":   "version: 1.2.3\n",
		"sub/.DS_Store": "junk",
	})
	right := writeTree(t, t.TempDir(), map[string]string{
		"same.txt":    "same",
		"right.txt":   "r",
		"changed.txt": "version: 9.9.9\n",
		"sub/keep":    "k",
	})

	t.Run("Text", func(t *testing.T) {
		stdout, _, err := execute(t, "diff", left, right)
		require.ErrorIs(t, err, ErrTreesDiffer)
		assert.EqualError(t, err, "directories differ: 4 entries")

		assert.Equal(t,
			"Only in "+left+": left.txt\n"+
				"Only in "+right+": right.txt\n"+
				"Only in "+right+": sub/keep\n"+
				"Differ: changed.txt\n",
			stdout)
	})

	t.Run("JSON", func(t *testing.T) {
		stdout, _, err := execute(t, "diff", left, right, "--json")
		require.ErrorIs(t, err, ErrTreesDiffer)

		var out diffOutput
		require.NoError(t, json.Unmarshal([]byte(stdout), &out))
		assert.False(t, out.Equal)
		assert.Equal(t, []string{"left.txt"}, out.Result.LeftOnly)
		assert.Equal(t, []string{"right.txt", "sub/keep"}, out.Result.RightOnly)
		assert.Equal(t, []string{"changed.txt"}, out.Result.DiffFiles)
	})

	t.Run("IgnoreFlags", func(t *testing.T) {
		stdout, _, err := execute(t, "diff", left, right, "--json",
			"--ignore", "left.txt", "--ignore-pattern", "*.txt", "--ignore", "sub")
		require.NoError(t, err)

		var out diffOutput
		require.NoError(t, json.Unmarshal([]byte(stdout), &out))
		assert.True(t, out.Equal)
	})

	t.Run("Report", func(t *testing.T) {
		stdout, _, err := execute(t, "diff", left, right, "--report", "--no-color")
		require.ErrorIs(t, err, ErrTreesDiffer)
		assert.Contains(t, stdout, "Directory contents differ:")
		assert.Contains(t, stdout, "-version: 1.2.3")
		assert.Contains(t, stdout, "+version: 9.9.9")
	})

	t.Run("Equal", func(t *testing.T) {
		stdout, _, err := execute(t, "diff", left, left)
		require.NoError(t, err)
		assert.Empty(t, stdout)
	})

	t.Run("MissingDirectory", func(t *testing.T) {
		_, _, err := execute(t, "diff", left, filepath.Join(right, "nope"))
		assert.ErrorContains(t, err, "directory not found")
	})

	t.Run("WrongArgs", func(t *testing.T) {
		_, _, err := execute(t, "diff", left)
		assert.Error(t, err)
	})
}

func TestDiffCommandFuzzy(t *testing.T) {
	expected := writeTree(t, t.TempDir(), map[string]string{"v.txt": "version: ...\n"})
	actual := writeTree(t, t.TempDir(), map[string]string{"v.txt": "version: 1.2.3\n"})

	_, _, err := execute(t, "diff", expected, actual)
	require.ErrorIs(t, err, ErrTreesDiffer)

	_, _, err = execute(t, "diff", expected, actual, "--fuzzy")
	require.NoError(t, err)

	_, _, err = execute(t, "diff", expected, actual, "--fuzzy", "--wildcard", "***")
	require.ErrorIs(t, err, ErrTreesDiffer)

	_, _, err = execute(t, "diff", expected, actual, "--fuzzy", "--encoding", "klingon")
	assert.Error(t, err)
}
