package treediff

// MatchFunc reports whether the files at pathA and pathB should be
// considered the same. It may be called any number of times for the same
// pair and must not have side effects the differ depends on.
type MatchFunc func(pathA, pathB string) (bool, error)

// EntryKind classifies a single name found at one directory level
type EntryKind int

const (
	KindLeftOnly EntryKind = iota
	KindRightOnly
	KindBothFile
	KindBothDir
	KindTypeMismatch
)

func (k EntryKind) String() string {
	switch k {
	case KindLeftOnly:
		return "left_only"
	case KindRightOnly:
		return "right_only"
	case KindBothFile:
		return "both_file"
	case KindBothDir:
		return "both_dir"
	case KindTypeMismatch:
		return "type_mismatch"
	default:
		return "unknown"
	}
}

// EntryType is the resolved type of a directory entry, symlinks followed.
type EntryType int

const (
	TypeFile EntryType = iota
	TypeDirectory
	TypeOther
)

func (t EntryType) String() string {
	switch t {
	case TypeFile:
		return "file"
	case TypeDirectory:
		return "directory"
	default:
		return "other"
	}
}

// classify computes the kind of a name given its presence and type on each
// side. Entries that are neither a regular file nor a directory can never be
// proven equal, so they classify as a mismatch.
func classify(left EntryType, inLeft bool, right EntryType, inRight bool) EntryKind {
	switch {
	case inLeft && !inRight:
		return KindLeftOnly
	case !inLeft && inRight:
		return KindRightOnly
	case left == TypeFile && right == TypeFile:
		return KindBothFile
	case left == TypeDirectory && right == TypeDirectory:
		return KindBothDir
	default:
		return KindTypeMismatch
	}
}
