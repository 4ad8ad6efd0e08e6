package tools

import "github.com/maauso/veogen/internal/job"

// Dispatched is returned by generation tools in async mode.
type Dispatched struct {
	Success             bool   `json:"success"`
	TaskID              string `json:"task_id"`
	Status              string `json:"status"`
	VariationsRequested int    `json:"variations_requested"`
	Message             string `json:"message"`
	Timestamp           string `json:"timestamp"`
}

// VideoStatus is the result of get_video_status.
type VideoStatus struct {
	VideoPath string `json:"video_path"`
	// Status is "available", "not_found" or "error".
	Status     string  `json:"status"`
	Exists     bool    `json:"exists"`
	LocalPath  string  `json:"local_path,omitempty"`
	SizeBytes  int64   `json:"size_bytes,omitempty"`
	FileSizeMB float64 `json:"file_size_mb,omitempty"`
	Modified   string  `json:"modified,omitempty"`
	Error      string  `json:"error,omitempty"`
	Timestamp  string  `json:"timestamp"`
}

// RecentVideo is one entry of RecentVideos.
type RecentVideo struct {
	Filename  string  `json:"filename"`
	Path      string  `json:"path"`
	SizeBytes int64   `json:"size_bytes"`
	SizeMB    float64 `json:"size_mb"`
	Created   string  `json:"created"`
	URL       string  `json:"url,omitempty"`
}

// RecentVideos is the result of list_recent_videos.
type RecentVideos struct {
	Videos          []RecentVideo `json:"videos"`
	Count           int           `json:"count"`
	TotalFiles      int           `json:"total_files"`
	OutputDirectory string        `json:"output_directory,omitempty"`
	Message         string        `json:"message,omitempty"`
	Error           string        `json:"error,omitempty"`
	Timestamp       string        `json:"timestamp"`
}

// TaskStatus is the result of get_task_status.
type TaskStatus struct {
	TaskID      string      `json:"task_id"`
	Status      string      `json:"status"`
	CreatedAt   string      `json:"created_at"`
	StartedAt   string      `json:"started_at,omitempty"`
	CompletedAt string      `json:"completed_at,omitempty"`
	Error       string      `json:"error,omitempty"`
	Result      *job.Result `json:"result,omitempty"`
	Timestamp   string      `json:"timestamp"`
}

// ErrorResult is the payload reported for a failed tool call.
type ErrorResult struct {
	Error string `json:"error"`
}
