package audio

import (
	"errors"
	"fmt"
	"os"
)

// MinFileSize is the smallest file that can hold a meaningful recording.
const MinFileSize = 100

var (
	ErrNotFound = errors.New("audio file not found")
	ErrEmpty    = errors.New("audio file is empty")
	ErrTooSmall = errors.New("audio file too small")
)

// Validate checks that path is a regular file large enough to transcribe
// and returns its size.
func Validate(path string) (int64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("stat audio file: %w", err)
	}
	if fi.IsDir() {
		return 0, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	switch size := fi.Size(); {
	case size == 0:
		return 0, ErrEmpty
	case size < MinFileSize:
		return size, ErrTooSmall
	default:
		return size, nil
	}
}
