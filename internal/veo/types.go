package veo

// SubmitOptions contains the generation parameters for one video.
type SubmitOptions struct {
	// AspectRatio is "16:9", "9:16" or "1:1".
	AspectRatio string
	// PersonGeneration is "dont_allow" or "allow_adult".
	PersonGeneration string
	// NegativePrompt lists content to steer away from. Optional.
	NegativePrompt string
}

// Video is one generated video reference. Data is set when the API returns
// the bytes inline; otherwise URI must be downloaded.
type Video struct {
	URI      string
	MIMEType string
	Data     []byte
}

// Operation is the state of a long-running generation.
type Operation struct {
	// Name is the operation handle used for polling.
	Name string
	// Done is true once the operation finished, successfully or not.
	Done bool
	// Error is the operation error message, if any.
	Error string
	// Videos are the generated videos when Done and Error is empty.
	Videos []Video
	// FilteredReasons explains videos dropped by safety filters.
	FilteredReasons []string
}
