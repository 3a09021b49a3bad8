package treediff

import (
	"bufio"
	"bytes"
	"io"
	"os"
)

const compareBufferSize = 32 * 1024

// FileExist reports whether path exists and is not a directory
func FileExist(path string) bool {
	stat, _ := os.Stat(path)
	if stat == nil {
		return false
	}

	return !stat.IsDir()
}

// ByteEqual is the default MatchFunc. It compares full file contents; file
// metadata such as size or modification time is never taken as proof of
// equality.
func ByteEqual(pathA, pathB string) (bool, error) {
	fileA, err := os.Open(pathA)
	if err != nil {
		return false, newReadFileError(pathA, err)
	}
	defer fileA.Close()

	fileB, err := os.Open(pathB)
	if err != nil {
		return false, newReadFileError(pathB, err)
	}
	defer fileB.Close()

	// Different sizes can never hold the same bytes.
	infoA, errA := fileA.Stat()
	infoB, errB := fileB.Stat()
	if errA == nil && errB == nil && infoA.Size() != infoB.Size() {
		return false, nil
	}

	readerA := bufio.NewReaderSize(fileA, compareBufferSize)
	readerB := bufio.NewReaderSize(fileB, compareBufferSize)
	bufA := make([]byte, compareBufferSize)
	bufB := make([]byte, compareBufferSize)

	for {
		nA, errA := io.ReadFull(readerA, bufA)
		if errA != nil && errA != io.EOF && errA != io.ErrUnexpectedEOF {
			return false, newReadFileError(pathA, errA)
		}

		nB, errB := io.ReadFull(readerB, bufB)
		if errB != nil && errB != io.EOF && errB != io.ErrUnexpectedEOF {
			return false, newReadFileError(pathB, errB)
		}

		if !bytes.Equal(bufA[:nA], bufB[:nB]) {
			return false, nil
		}

		if errA != nil || errB != nil {
			return errA != nil && errB != nil, nil
		}
	}
}

// ReadFile reads entire file content as bytes
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newReadFileError(path, err)
	}

	return data, nil
}
