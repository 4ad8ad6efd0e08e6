package job

import (
	"math"
	"time"
)

// Result is the structured outcome of SubmitAndAwait. It is always
// returned, whatever failed.
type Result struct {
	Success             bool       `json:"success"`
	TotalVideos         int        `json:"total_videos"`
	VariationsRequested int        `json:"variations_requested"`
	Videos              []Artifact `json:"videos"`
	Failures            []Failure  `json:"failures,omitempty"`
	Prompt              string     `json:"prompt"`
	AspectRatio         string     `json:"aspect_ratio"`
	PersonGeneration    string     `json:"person_generation"`
	Style               string     `json:"style,omitempty"`
	Model               string     `json:"model"`
	Backend             string     `json:"backend"`
	ElapsedSeconds      float64    `json:"elapsed_seconds"`
	Error               string     `json:"error,omitempty"`
	ErrorKind           ErrorKind  `json:"error_kind,omitempty"`
	Timestamp           string     `json:"timestamp"`
}

// Artifact summarises one persisted video.
type Artifact struct {
	Variation int     `json:"variation"`
	Index     int     `json:"video_index"`
	Filename  string  `json:"filename"`
	LocalPath string  `json:"local_path"`
	URL       string  `json:"url"`
	SizeBytes int64   `json:"size_bytes"`
	SizeMB    float64 `json:"size_mb"`
	MIMEType  string  `json:"mime_type"`
}

// Failure describes a variation, or one of its videos, that produced no
// artifact.
type Failure struct {
	Variation int       `json:"variation"`
	Index     int       `json:"video_index,omitempty"`
	ErrorKind ErrorKind `json:"error_kind"`
	Error     string    `json:"error"`
	Polls     int       `json:"polls"`
}

// SizeMB converts a byte count to megabytes rounded to two decimals.
func SizeMB(n int64) float64 {
	return math.Round(float64(n)/(1024*1024)*100) / 100
}

func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*10) / 10
}
