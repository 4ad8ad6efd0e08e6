package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// maxNameAttempts bounds the collision-suffix search in Save.
const maxNameAttempts = 1000

// Compile-time check that LocalStorage implements Storage.
var _ Storage = (*LocalStorage)(nil)

// LocalStorage implements Storage on a local directory.
type LocalStorage struct {
	dir           string
	publicBaseURL string
}

// NewLocalStorage creates a new LocalStorage rooted at dir.
// If dir is empty, "generated_videos" is used. The directory is created if
// it doesn't exist. publicBaseURL is used to build artifact URLs of the form
// {publicBaseURL}/videos/{filename}; it may be empty.
func NewLocalStorage(dir, publicBaseURL string) (*LocalStorage, error) {
	if dir == "" {
		dir = "generated_videos"
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	return &LocalStorage{
		dir:           dir,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

// Dir returns the output directory path.
func (s *LocalStorage) Dir() string {
	return s.dir
}

// PublicURL returns the URL under which filename is served.
func (s *LocalStorage) PublicURL(filename string) string {
	if s.publicBaseURL == "" {
		return ""
	}
	return s.publicBaseURL + "/videos/" + url.PathEscape(filename)
}

// Save writes data to a new file named after name. The file is created with
// O_EXCL so concurrent writers never share a name; on collision a numeric
// suffix is tried instead.
func (s *LocalStorage) Save(ctx context.Context, name ArtifactName, data []byte) (SavedArtifact, error) {
	select {
	case <-ctx.Done():
		return SavedArtifact{}, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	if len(data) == 0 {
		return SavedArtifact{}, ErrEmptyData
	}

	// Output directory may have been removed since startup.
	if err := os.MkdirAll(s.dir, 0750); err != nil {
		return SavedArtifact{}, fmt.Errorf("create output directory: %w", err)
	}

	mime, ext := detectType(data, name.Ext)
	if name.At.IsZero() {
		name.At = nowFunc()
	}

	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		filename := name.candidate(ext, attempt)
		p := filepath.Join(s.dir, filename)

		f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0640) // #nosec G304 - name is built from sanitized parts
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return SavedArtifact{}, fmt.Errorf("create artifact file: %w", err)
		}

		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			_ = os.Remove(p)
			return SavedArtifact{}, fmt.Errorf("write artifact file: %w", err)
		}
		if err := f.Close(); err != nil {
			_ = os.Remove(p)
			return SavedArtifact{}, fmt.Errorf("close artifact file: %w", err)
		}

		return SavedArtifact{
			Filename:  filename,
			Path:      p,
			SizeBytes: int64(len(data)),
			MIMEType:  mime,
			URL:       s.PublicURL(filename),
		}, nil
	}

	return SavedArtifact{}, fmt.Errorf("%w: %s", ErrNameExhausted, name.Base())
}

// Stat resolves ref and reports whether the file exists.
//
// Accepted references:
//   - file:///abs/path.mp4
//   - {publicBaseURL}/videos/name.mp4 and any http(s) URL whose path contains /videos/
//   - a bare filename, looked up in the output directory
//   - any other filesystem path, used as is
func (s *LocalStorage) Stat(ctx context.Context, ref string) (ArtifactStatus, error) {
	select {
	case <-ctx.Done():
		return ArtifactStatus{}, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ArtifactStatus{}, ErrEmptyReference
	}

	status := ArtifactStatus{Ref: ref, Path: s.resolve(ref)}

	info, err := os.Stat(status.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return status, nil
	}
	if err != nil {
		return status, fmt.Errorf("stat artifact: %w", err)
	}
	if info.IsDir() {
		return status, nil
	}

	status.Exists = true
	status.SizeBytes = info.Size()
	status.ModTime = info.ModTime()
	return status, nil
}

func (s *LocalStorage) resolve(ref string) string {
	if strings.HasPrefix(ref, "file://") {
		if u, err := url.Parse(ref); err == nil && u.Path != "" {
			return filepath.FromSlash(u.Path)
		}
		return strings.TrimPrefix(ref, "file://")
	}

	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		if u, err := url.Parse(ref); err == nil && strings.Contains(u.Path, "/videos/") {
			return filepath.Join(s.dir, path.Base(u.Path))
		}
		return ref
	}

	if !strings.ContainsAny(ref, `/\`) {
		return filepath.Join(s.dir, ref)
	}
	return ref
}

// ListRecent lists non-hidden video files in the output directory.
func (s *LocalStorage) ListRecent(ctx context.Context, limit int) (Listing, error) {
	select {
	case <-ctx.Done():
		return Listing{}, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	if limit <= 0 {
		limit = DefaultListLimit
	}

	listing := Listing{Dir: s.dir, Artifacts: []ArtifactInfo{}}

	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return listing, nil
	}
	if err != nil {
		return listing, fmt.Errorf("read output directory: %w", err)
	}

	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") || !isVideoFile(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		listing.Artifacts = append(listing.Artifacts, ArtifactInfo{
			Filename:  e.Name(),
			Path:      filepath.Join(s.dir, e.Name()),
			SizeBytes: info.Size(),
			ModTime:   info.ModTime(),
			URL:       s.PublicURL(e.Name()),
		})
	}

	sort.SliceStable(listing.Artifacts, func(i, j int) bool {
		a, b := listing.Artifacts[i], listing.Artifacts[j]
		if !a.ModTime.Equal(b.ModTime) {
			return a.ModTime.After(b.ModTime)
		}
		return a.Filename < b.Filename
	})

	listing.Total = len(listing.Artifacts)
	if len(listing.Artifacts) > limit {
		listing.Artifacts = listing.Artifacts[:limit]
	}
	return listing, nil
}
