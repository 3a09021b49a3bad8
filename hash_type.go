package treediff

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"os"
)

// HashType represents the type of hash algorithm
type HashType string

const (
	HashMD5    HashType = "md5"
	HashSHA1   HashType = "sha1"
	HashSHA256 HashType = "sha256"
)

func (h HashType) new() hash.Hash {
	switch h {
	case HashMD5:
		return md5.New()
	case HashSHA1:
		return sha1.New()
	default:
		return sha256.New()
	}
}

// FileChecksum returns the hex digest of the file at path
func FileChecksum(path string, hashType HashType) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", newReadFileError(path, err)
	}
	defer file.Close()

	h := hashType.new()
	if _, err := io.Copy(h, file); err != nil {
		return "", newReadFileError(path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
