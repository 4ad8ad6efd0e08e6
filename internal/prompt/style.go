package prompt

import (
	"fmt"
	"strings"
)

// Style is a named prompt template.
type Style string

const (
	StyleNone        Style = ""
	StyleCinematic   Style = "cinematic"
	StyleDocumentary Style = "documentary"
	StyleArtistic    Style = "artistic"
	StyleCommercial  Style = "commercial"
	StyleRealistic   Style = "realistic"
	StyleDramatic    Style = "dramatic"
	StyleMinimalist  Style = "minimalist"
	StyleVibrant     Style = "vibrant"
)

var styleTemplates = map[Style]string{
	StyleCinematic:   "Cinematic masterpiece of %s, professional cinematography, film grain, shallow depth of field, dramatic composition, movie-quality lighting",
	StyleDocumentary: "Documentary style footage of %s, natural lighting, realistic, observational camera work, authentic feel",
	StyleArtistic:    "Artistic interpretation of %s, creative angles, dramatic composition, artistic lighting, visual storytelling",
	StyleCommercial:  "Commercial quality video of %s, clean, professional, branded, high production value, polished",
	StyleRealistic:   "Photorealistic video of %s, natural lighting, authentic, true-to-life, high detail",
	StyleDramatic:    "Dramatic scene of %s, intense lighting, emotional, high contrast, powerful visuals",
	StyleMinimalist:  "Minimalist video of %s, clean composition, simple, elegant, focused",
	StyleVibrant:     "Vibrant and colorful video of %s, rich colors, dynamic, energetic, visually striking",
}

// ParseStyle returns the named style, or StyleNone when s is not recognised.
func ParseStyle(s string) Style {
	st := Style(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := styleTemplates[st]; ok {
		return st
	}
	return StyleNone
}

// Enhance wraps p in the style's template. StyleNone returns p unchanged.
func (s Style) Enhance(p string) string {
	tmpl, ok := styleTemplates[s]
	if !ok {
		return p
	}
	return fmt.Sprintf(tmpl, p)
}

// MotionParams are the image-to-video knobs a style maps to.
type MotionParams struct {
	CfgScale       float64
	MotionBucketID int
}

var motionParams = map[Style]MotionParams{
	StyleCinematic:   {CfgScale: 9, MotionBucketID: 180},
	StyleDocumentary: {CfgScale: 7, MotionBucketID: 127},
	StyleArtistic:    {CfgScale: 12, MotionBucketID: 200},
	StyleCommercial:  {CfgScale: 8, MotionBucketID: 150},
}

// Motion returns the image-to-video parameters for s, falling back to the
// cinematic preset for styles without one.
func (s Style) Motion() MotionParams {
	if p, ok := motionParams[s]; ok {
		return p
	}
	return motionParams[StyleCinematic]
}
