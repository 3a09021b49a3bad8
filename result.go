package treediff

import (
	"sort"

	"github.com/samber/lo"
)

// Bucket names one of the three classification lists of a Result
type Bucket string

const (
	BucketLeftOnly  Bucket = "left_only"
	BucketRightOnly Bucket = "right_only"
	BucketDiffFiles Bucket = "diff_files"
)

// Result is the outcome of comparing two directory trees. Paths are relative
// to the roots, slash separated, sorted and free of duplicates.
type Result struct {
	LeftOnly  []string `json:"left_only"`
	RightOnly []string `json:"right_only"`
	DiffFiles []string `json:"diff_files"`
}

// Empty reports whether the trees are equivalent
func (r *Result) Empty() bool {
	return r.Len() == 0
}

// Len returns the total number of entries across all buckets
func (r *Result) Len() int {
	return len(r.LeftOnly) + len(r.RightOnly) + len(r.DiffFiles)
}

// Paths returns the entries of the given bucket
func (r *Result) Paths(bucket Bucket) []string {
	switch bucket {
	case BucketLeftOnly:
		return r.LeftOnly
	case BucketRightOnly:
		return r.RightOnly
	case BucketDiffFiles:
		return r.DiffFiles
	default:
		return nil
	}
}

// NonEmptyBuckets lists the buckets holding at least one entry, in
// left_only, right_only, diff_files order.
func (r *Result) NonEmptyBuckets() []Bucket {
	return lo.Filter([]Bucket{BucketLeftOnly, BucketRightOnly, BucketDiffFiles}, func(b Bucket, _ int) bool {
		return len(r.Paths(b)) > 0
	})
}

// Swap returns the result as seen from the other side: left and right
// buckets exchanged.
func (r *Result) Swap() *Result {
	return &Result{
		LeftOnly:  append([]string{}, r.RightOnly...),
		RightOnly: append([]string{}, r.LeftOnly...),
		DiffFiles: append([]string{}, r.DiffFiles...),
	}
}

func (r *Result) merge(child *Result) {
	r.LeftOnly = append(r.LeftOnly, child.LeftOnly...)
	r.RightOnly = append(r.RightOnly, child.RightOnly...)
	r.DiffFiles = append(r.DiffFiles, child.DiffFiles...)
}

func (r *Result) normalize() {
	for _, bucket := range []*[]string{&r.LeftOnly, &r.RightOnly, &r.DiffFiles} {
		paths := lo.Uniq(*bucket)
		sort.Strings(paths)
		*bucket = paths
	}
}

func newResult() *Result {
	return &Result{
		LeftOnly:  []string{},
		RightOnly: []string{},
		DiffFiles: []string{},
	}
}
