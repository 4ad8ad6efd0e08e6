package prompt

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAspectRatio(t *testing.T) {
	tests := []struct {
		input string
		want  AspectRatio
	}{
		{"16:9", AspectLandscape},
		{"9:16", AspectPortrait},
		{"1:1", AspectSquare},
		{"landscape", AspectLandscape},
		{"Horizontal", AspectLandscape},
		{"wide", AspectLandscape},
		{"portrait", AspectPortrait},
		{"VERTICAL", AspectPortrait},
		{"mobile", AspectPortrait},
		{"square", AspectSquare},
		{"cinemascope", DefaultAspectRatio},
		{"", DefaultAspectRatio},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAspectRatio(tt.input))
		})
	}
}

func TestParsePersonPolicy(t *testing.T) {
	tests := []struct {
		input string
		want  PersonPolicy
	}{
		{"no", PersonDontAllow},
		{"false", PersonDontAllow},
		{"yes", PersonAllowAdult},
		{"TRUE", PersonAllowAdult},
		{"allow", PersonAllowAdult},
		{"adults", PersonAllowAdult},
		{"allow_adult", PersonAllowAdult},
		{"dont_allow", PersonDontAllow},
		{"maybe", DefaultPersonPolicy},
		{"", DefaultPersonPolicy},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePersonPolicy(tt.input))
		})
	}
}

func TestParseVariationCount(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  int
	}{
		{"nil falls back to default", nil, 2},
		{"non-numeric string falls back to default", "abc", 2},
		{"empty string falls back to default", "", 2},
		{"decimal string falls back to default", "2.5", 2},
		{"numeric string", "3", 3},
		{"padded numeric string", " 4 ", 4},
		{"int", 1, 1},
		{"json float", float64(5), 5},
		{"json number", json.Number("4"), 4},
		{"zero clamps up", 0, 1},
		{"negative clamps up", -3, 1},
		{"large clamps down", 50, 5},
		{"large string clamps down", "9", 5},
		{"unsupported type falls back to default", []int{3}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseVariationCount(tt.input, 2, 5))
		})
	}
}

func TestClampVariations(t *testing.T) {
	assert.Equal(t, 1, ClampVariations(0, 5))
	assert.Equal(t, 3, ClampVariations(3, 5))
	assert.Equal(t, 5, ClampVariations(7, 5))
	assert.Equal(t, 1, ClampVariations(3, 0))
}

func TestParseStyle(t *testing.T) {
	assert.Equal(t, StyleCinematic, ParseStyle("cinematic"))
	assert.Equal(t, StyleVibrant, ParseStyle(" Vibrant "))
	assert.Equal(t, StyleNone, ParseStyle("noir"))
	assert.Equal(t, StyleNone, ParseStyle(""))
}

func TestStyle_Enhance(t *testing.T) {
	t.Run("known style wraps prompt", func(t *testing.T) {
		got := StyleDocumentary.Enhance("a fox in snow")
		assert.Equal(t, "Documentary style footage of a fox in snow, natural lighting, realistic, observational camera work, authentic feel", got)
	})

	t.Run("every style keeps the prompt", func(t *testing.T) {
		for st := range styleTemplates {
			assert.Contains(t, st.Enhance("a red kite"), "a red kite", string(st))
		}
	})

	t.Run("unknown style returns prompt unchanged", func(t *testing.T) {
		assert.Equal(t, "a fox", ParseStyle("noir").Enhance("a fox"))
	})
}

func TestStyle_Motion(t *testing.T) {
	assert.Equal(t, MotionParams{CfgScale: 12, MotionBucketID: 200}, StyleArtistic.Motion())
	assert.Equal(t, MotionParams{CfgScale: 7, MotionBucketID: 127}, StyleDocumentary.Motion())
	// Styles without a preset fall back to cinematic.
	assert.Equal(t, StyleCinematic.Motion(), StyleVibrant.Motion())
	assert.Equal(t, StyleCinematic.Motion(), StyleNone.Motion())
}

func TestFromSpeech(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "very short gets full enhancement",
			input: "um a cat",
			want:  "High-quality cinematic video of a cat, professional lighting, detailed visuals, smooth camera movement",
		},
		{
			name:  "short gets moderate enhancement",
			input: "so like a dog surfing big waves",
			want:  "Cinematic shot of a dog surfing big waves, professional quality, detailed",
		},
		{
			name:  "long prompt is only cleaned",
			input: "Well, you know, a drone shot over a glacier at sunrise with mist",
			want:  "a drone shot over a glacier at sunrise with mist",
		},
		{
			name:  "only filler",
			input: "um uh",
			want:  "",
		},
		{
			name:  "you know inside longer words is kept",
			input: "show you knowledgeable owls reading books in a library at night",
			want:  "show you knowledgeable owls reading books in a library at night",
		},
		{
			name:  "you knows is not the filler phrase",
			input: "the parrot who says you knows everything, on a perch",
			want:  "the parrot who says you knows everything, on a perch",
		},
		{
			name:  "you know with punctuation and case",
			input: "A storm, You know, rolling over wheat fields in late summer",
			want:  "A storm, rolling over wheat fields in late summer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromSpeech(tt.input)
			assert.Equal(t, tt.want, got)
			assert.False(t, strings.Contains(got, "  "))
		})
	}
}
