package storage

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// timestampLayout renders as YYYYMMDD_HHMMSS.
const timestampLayout = "20060102_150405"

// nowFunc is replaced in tests.
var nowFunc = time.Now

// defaultExt is used when the content type cannot be detected.
const defaultExt = ".mp4"

// ArtifactName carries the parts an artifact filename is derived from:
// {Tag}_{Variation}_{Index}_{YYYYMMDD_HHMMSS}{ext}.
type ArtifactName struct {
	Tag       string
	Variation int
	Index     int
	At        time.Time
	// Ext overrides content sniffing when set, e.g. ".mp4".
	Ext string
}

// Base returns the filename without an extension or collision suffix.
func (n ArtifactName) Base() string {
	tag := n.Tag
	if tag == "" {
		tag = "video"
	}
	at := n.At
	if at.IsZero() {
		at = nowFunc()
	}
	return fmt.Sprintf("%s_%d_%d_%s", sanitize(tag), n.Variation, n.Index, at.Format(timestampLayout))
}

// candidate returns the attempt-th filename for n. Attempt 0 is the plain
// name; later attempts append _{attempt} before the extension.
func (n ArtifactName) candidate(ext string, attempt int) string {
	if attempt == 0 {
		return n.Base() + ext
	}
	return fmt.Sprintf("%s_%d%s", n.Base(), attempt, ext)
}

// detectType returns the MIME type and extension for data. Unknown or
// generic binary content is assumed to be MP4 video.
func detectType(data []byte, override string) (mime, ext string) {
	mt := mimetype.Detect(data)
	mime, ext = mt.String(), mt.Extension()
	if ext == "" || mt.Is("application/octet-stream") {
		mime, ext = "video/mp4", defaultExt
	}
	if override != "" {
		ext = "." + strings.TrimPrefix(override, ".")
	}
	return mime, ext
}

// videoExts are the video extensions detectType can produce.
var videoExts = map[string]bool{
	".mp4": true, ".m4v": true, ".mov": true, ".webm": true,
	".mkv": true, ".avi": true, ".mpeg": true, ".flv": true,
	".3gp": true, ".3g2": true,
}

// isVideoFile reports whether name has a video extension.
func isVideoFile(name string) bool {
	return videoExts[strings.ToLower(filepath.Ext(name))]
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '-'
		}
	}, s)
}
