package job

import (
	"strings"

	"github.com/maauso/veogen/internal/prompt"
)

// Budget selects which poll bound applies to a request.
type Budget string

const (
	BudgetBasic    Budget = "basic"
	BudgetExtended Budget = "extended"
)

// Request is the input to one generation. It is not modified after
// submission; Normalize returns a copy.
type Request struct {
	Prompt         string
	AspectRatio    prompt.AspectRatio
	PersonPolicy   prompt.PersonPolicy
	VariationCount int
	Style          prompt.Style
	NegativePrompt string
	// ImagePath is the source image for image-to-video backends.
	ImagePath string
	Budget    Budget
}

// Normalize trims the prompt, replaces unsupported enum values with their
// defaults and clamps VariationCount to [1, maxVariations].
func (r Request) Normalize(maxVariations int) Request {
	r.Prompt = strings.TrimSpace(r.Prompt)
	if !r.AspectRatio.IsValid() {
		r.AspectRatio = prompt.DefaultAspectRatio
	}
	if !r.PersonPolicy.IsValid() {
		r.PersonPolicy = prompt.DefaultPersonPolicy
	}
	r.VariationCount = prompt.ClampVariations(r.VariationCount, maxVariations)
	if r.Budget != BudgetExtended {
		r.Budget = BudgetBasic
	}
	return r
}
