package treediff

import (
	"errors"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/karrick/godirwalk"
	"github.com/samber/lo"
)

var (
	errNotDirectory = errors.New("not a directory")
	errSymlinkCycle = errors.New("symbolic link cycle")
)

// DirectoryExist reports whether path exists and is a directory
func DirectoryExist(path string) bool {
	stat, _ := os.Stat(path)
	if stat == nil {
		return false
	}

	return stat.IsDir()
}

// Diff compares the directory trees rooted at left and right.
//
// Every name is classified once per level: present only on the left, only on
// the right, a file on both sides, a directory on both sides, or a type
// mismatch. Files present on both sides are always handed to the match
// function, whose answer is final. Directories present on both sides are
// compared recursively. The returned buckets are sorted.
//
// Diff fails with *DirectoryNotFoundError when a root is missing, and with
// *TraversalError when any directory cannot be listed or a symbolic link
// leads back to one of its ancestors. Errors returned by
// the match function abort the comparison unchanged.
func Diff(left, right string, options ...DiffOption) (*Result, error) {
	opts := defaultDiffOptions()
	for _, opt := range options {
		opt(opts)
	}

	if err := opts.validate(); err != nil {
		return nil, err
	}

	leftInfo, err := checkRoot(left)
	if err != nil {
		return nil, err
	}

	rightInfo, err := checkRoot(right)
	if err != nil {
		return nil, err
	}

	chain := &ancestry{
		left:  []os.FileInfo{leftInfo},
		right: []os.FileInfo{rightInfo},
	}

	result, err := diffDirectories(left, right, "", opts, chain)
	if err != nil {
		return nil, err
	}

	result.normalize()
	return result, nil
}

func checkRoot(root string) (os.FileInfo, error) {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, newDirectoryNotFoundError(root, err)
		}
		return nil, newTraversalError(root, err)
	}

	if !info.IsDir() {
		return nil, newDirectoryNotFoundError(root, errNotDirectory)
	}

	return info, nil
}

// ancestry holds the directories on the current recursion path of each
// side, used to detect symbolic link cycles.
type ancestry struct {
	left  []os.FileInfo
	right []os.FileInfo
}

func (a *ancestry) enter(left, right string) error {
	leftInfo, err := enterDirectory(left, a.left)
	if err != nil {
		return err
	}

	rightInfo, err := enterDirectory(right, a.right)
	if err != nil {
		return err
	}

	a.left = append(a.left, leftInfo)
	a.right = append(a.right, rightInfo)
	return nil
}

func (a *ancestry) leave() {
	a.left = a.left[:len(a.left)-1]
	a.right = a.right[:len(a.right)-1]
}

func enterDirectory(dir string, ancestors []os.FileInfo) (os.FileInfo, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, newTraversalError(dir, err)
	}

	for _, ancestor := range ancestors {
		if os.SameFile(info, ancestor) {
			return nil, newTraversalError(dir, errSymlinkCycle)
		}
	}

	return info, nil
}

// diffDirectories compares one directory level and composes the results of
// its common subdirectories. prefix is the slash-separated path of the level
// relative to the roots.
func diffDirectories(left, right, prefix string, opts *diffOptions, chain *ancestry) (*Result, error) {
	leftEntries, err := listDirectory(left, opts)
	if err != nil {
		return nil, err
	}

	rightEntries, err := listDirectory(right, opts)
	if err != nil {
		return nil, err
	}

	names := lo.Uniq(append(lo.Keys(leftEntries), lo.Keys(rightEntries)...))
	sort.Strings(names)

	result := newResult()
	for _, name := range names {
		relPath := path.Join(prefix, name)
		leftType, inLeft := leftEntries[name]
		rightType, inRight := rightEntries[name]

		switch classify(leftType, inLeft, rightType, inRight) {
		case KindLeftOnly:
			result.LeftOnly = append(result.LeftOnly, relPath)
		case KindRightOnly:
			result.RightOnly = append(result.RightOnly, relPath)
		case KindTypeMismatch:
			result.DiffFiles = append(result.DiffFiles, relPath)
		case KindBothFile:
			same, err := opts.match(filepath.Join(left, name), filepath.Join(right, name))
			if err != nil {
				return nil, err
			}
			if !same {
				result.DiffFiles = append(result.DiffFiles, relPath)
			}
		case KindBothDir:
			leftChild, rightChild := filepath.Join(left, name), filepath.Join(right, name)
			if err := chain.enter(leftChild, rightChild); err != nil {
				return nil, err
			}

			child, err := diffDirectories(leftChild, rightChild, relPath, opts, chain)
			chain.leave()
			if err != nil {
				return nil, err
			}
			result.merge(child)
		}
	}

	return result, nil
}

// listDirectory returns the resolved type of every entry of dir that is not
// ignored. Symbolic links are followed; a link that cannot be resolved is
// reported as TypeOther rather than failing the listing.
func listDirectory(dir string, opts *diffOptions) (map[string]EntryType, error) {
	dirents, err := godirwalk.ReadDirents(dir, nil)
	if err != nil {
		return nil, newTraversalError(dir, err)
	}

	entries := make(map[string]EntryType, len(dirents))
	for _, de := range dirents {
		name := de.Name()
		if opts.ignored(name) {
			continue
		}

		entries[name] = direntType(dir, de)
	}

	return entries, nil
}

func direntType(dir string, de *godirwalk.Dirent) EntryType {
	if de.IsSymlink() {
		info, err := os.Stat(filepath.Join(dir, de.Name()))
		if err != nil {
			return TypeOther
		}
		return modeType(info.Mode())
	}

	return modeType(de.ModeType())
}

func modeType(mode os.FileMode) EntryType {
	switch {
	case mode.IsDir():
		return TypeDirectory
	case mode.IsRegular():
		return TypeFile
	default:
		return TypeOther
	}
}

// statType resolves the type of a single path, symlinks followed
func statType(path string) (EntryType, error) {
	info, err := os.Stat(path)
	if err != nil {
		return TypeOther, err
	}

	return modeType(info.Mode()), nil
}
