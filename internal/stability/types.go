package stability

// Status represents the state of an image-to-video generation.
type Status string

const (
	// StatusInProgress indicates the generation is still running (HTTP 202).
	StatusInProgress Status = "in-progress"
	// StatusComplete indicates the video is ready (HTTP 200).
	StatusComplete Status = "complete"
	// StatusFailed indicates the generation finished without a usable video.
	StatusFailed Status = "failed"
)

// SubmitOptions contains the generation parameters.
type SubmitOptions struct {
	// Seed controls randomness; 0 lets the service pick.
	Seed int
	// CfgScale is how strongly the video sticks to the source image (0-10).
	CfgScale float64
	// MotionBucketID controls the amount of motion (1-255).
	MotionBucketID int
	// Filename is the name sent for the image part. Defaults to "image.png".
	Filename string
}

// PollResult contains the result of polling a generation.
type PollResult struct {
	Status       Status
	Video        []byte
	MIMEType     string
	FinishReason string
	Error        string
}

// submitResponse is the JSON body returned by the submit endpoint.
type submitResponse struct {
	ID string `json:"id"`
}

// errorResponse is the JSON body of a non-2xx response.
type errorResponse struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Errors []string `json:"errors"`
}
