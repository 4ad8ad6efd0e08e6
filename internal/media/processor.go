// Package media wraps the ffmpeg operations needed to prepare source images
// for image-to-video backends.
package media

import "context"

// Processor defines the image preparation operations used before upload.
type Processor interface {
	// ResizeImageWithPadding scales src to fit within w x h, keeping its
	// aspect ratio, and pads the remainder with black. The result is written
	// to dst.
	ResizeImageWithPadding(ctx context.Context, src, dst string, w, h int) error
}

// Frame is a target frame size in pixels.
type Frame struct {
	Width  int
	Height int
}

// Frame sizes accepted by image-to-video models.
var (
	FrameLandscape = Frame{Width: 1024, Height: 576}
	FramePortrait  = Frame{Width: 576, Height: 1024}
	FrameSquare    = Frame{Width: 768, Height: 768}
)

// FrameFor returns the frame size for an aspect ratio such as "16:9".
// Unknown ratios get the landscape frame.
func FrameFor(aspectRatio string) Frame {
	switch aspectRatio {
	case "9:16":
		return FramePortrait
	case "1:1":
		return FrameSquare
	default:
		return FrameLandscape
	}
}
