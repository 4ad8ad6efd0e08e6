package generator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidImagePath is returned when a source image is not a local regular file.
var ErrInvalidImagePath = errors.New("image path must be a local regular file")

// ResolveImagePath returns p as an absolute path to an existing regular file.
// A file:// prefix is accepted; other URLs and ffmpeg protocols are not.
func ResolveImagePath(p string) (string, error) {
	if rest, ok := strings.CutPrefix(p, "file://"); ok {
		p = rest
	}
	if p == "" || strings.Contains(p, "://") {
		return "", fmt.Errorf("%w: %q", ErrInvalidImagePath, p)
	}

	// An absolute path keeps ffmpeg from reading a "proto:" prefix.
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidImagePath, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidImagePath, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s is not a regular file", ErrInvalidImagePath, abs)
	}
	return abs, nil
}
