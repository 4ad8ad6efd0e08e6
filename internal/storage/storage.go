// Package storage persists generated artifacts in a flat output directory
// and answers status and listing queries about it. S3Storage optionally
// mirrors every artifact to an S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"time"
)

// Static errors for storage operations.
var (
	// ErrEmptyReference is returned by Stat when no path or URL is given.
	ErrEmptyReference = errors.New("storage: empty artifact reference")
	// ErrEmptyData is returned when an artifact has no bytes to write.
	ErrEmptyData = errors.New("storage: artifact data is empty")
	// ErrNameExhausted is returned when no unique filename could be reserved.
	ErrNameExhausted = errors.New("storage: could not reserve a unique filename")
)

// Storage defines the artifact store used by the job runner and the
// status/listing tools.
type Storage interface {
	// Save writes data to a new, uniquely named file derived from name.
	// Existing files are never overwritten.
	Save(ctx context.Context, name ArtifactName, data []byte) (SavedArtifact, error)

	// Stat resolves a file path, file:// reference or public URL to a file
	// in the output directory and reports whether it exists. A missing file
	// is not an error.
	Stat(ctx context.Context, ref string) (ArtifactStatus, error)

	// ListRecent returns up to limit files ordered by modification time,
	// newest first. A missing output directory yields an empty listing.
	ListRecent(ctx context.Context, limit int) (Listing, error)

	// Dir returns the output directory.
	Dir() string
}

// SavedArtifact describes a file written by Save.
type SavedArtifact struct {
	Filename  string
	Path      string
	SizeBytes int64
	MIMEType  string
	URL       string
}

// ArtifactStatus is the result of Stat.
type ArtifactStatus struct {
	Ref       string
	Path      string
	Exists    bool
	SizeBytes int64
	ModTime   time.Time
}

// ArtifactInfo is one entry of a Listing.
type ArtifactInfo struct {
	Filename  string
	Path      string
	SizeBytes int64
	ModTime   time.Time
	URL       string
}

// Listing is the result of ListRecent.
type Listing struct {
	Dir       string
	Artifacts []ArtifactInfo
	// Total is the number of files in the directory before truncation.
	Total int
}

// DefaultListLimit is used by ListRecent when limit is not positive.
const DefaultListLimit = 10
