// Package prompt holds the request vocabulary shared by every tool boundary:
// aspect ratios, person policies, styles and variation counts. Every lookup
// has an explicit fallback so unrecognised words never turn into errors.
package prompt

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// AspectRatio is a width:height ratio understood by the backends.
type AspectRatio string

const (
	AspectLandscape AspectRatio = "16:9"
	AspectPortrait  AspectRatio = "9:16"
	AspectSquare    AspectRatio = "1:1"

	DefaultAspectRatio = AspectLandscape
)

// IsValid returns true if the aspect ratio is supported.
func (a AspectRatio) IsValid() bool {
	return a == AspectLandscape || a == AspectPortrait || a == AspectSquare
}

var formatWords = map[string]AspectRatio{
	"landscape":  AspectLandscape,
	"horizontal": AspectLandscape,
	"wide":       AspectLandscape,
	"portrait":   AspectPortrait,
	"vertical":   AspectPortrait,
	"mobile":     AspectPortrait,
	"square":     AspectSquare,
}

// ParseAspectRatio accepts either a ratio ("9:16") or a format word
// ("portrait"). Anything else maps to DefaultAspectRatio.
func ParseAspectRatio(s string) AspectRatio {
	s = strings.ToLower(strings.TrimSpace(s))
	if a := AspectRatio(s); a.IsValid() {
		return a
	}
	if a, ok := formatWords[s]; ok {
		return a
	}
	return DefaultAspectRatio
}

// PersonPolicy controls whether generated videos may depict people.
type PersonPolicy string

const (
	PersonDontAllow  PersonPolicy = "dont_allow"
	PersonAllowAdult PersonPolicy = "allow_adult"

	DefaultPersonPolicy = PersonDontAllow
)

// IsValid returns true if the policy is supported.
func (p PersonPolicy) IsValid() bool {
	return p == PersonDontAllow || p == PersonAllowAdult
}

var peopleWords = map[string]PersonPolicy{
	"no":     PersonDontAllow,
	"false":  PersonDontAllow,
	"yes":    PersonAllowAdult,
	"true":   PersonAllowAdult,
	"allow":  PersonAllowAdult,
	"adults": PersonAllowAdult,
}

// ParsePersonPolicy accepts a policy value or a yes/no style word.
// Anything else maps to DefaultPersonPolicy.
func ParsePersonPolicy(s string) PersonPolicy {
	s = strings.ToLower(strings.TrimSpace(s))
	if p := PersonPolicy(s); p.IsValid() {
		return p
	}
	if p, ok := peopleWords[s]; ok {
		return p
	}
	return DefaultPersonPolicy
}

// ParseVariationCount converts loosely typed input into a variation count in
// [1, max]. Numbers and numeric strings are truncated and clamped; nil, empty
// and non-numeric input yields def.
func ParseVariationCount(v any, def, max int) int {
	n, ok := toInt(v)
	if !ok {
		n = def
	}
	return ClampVariations(n, max)
}

// ClampVariations bounds n to [1, max]. A non-positive max is treated as 1.
func ClampVariations(n, max int) int {
	if max < 1 {
		max = 1
	}
	if n < 1 {
		return 1
	}
	if n > max {
		return max
	}
	return n
}

func toInt(v any) (int, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case int:
		return x, true
	case int32:
		return int(x), true
	case int64:
		return int(x), true
	case float32:
		return floatToInt(float64(x))
	case float64:
		return floatToInt(x)
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		if n, err := strconv.Atoi(s); err == nil {
			return n, true
		}
		return 0, false
	case fmt.Stringer:
		return toInt(x.String())
	default:
		return 0, false
	}
}

func floatToInt(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f > math.MaxInt32 {
		return math.MaxInt32, true
	}
	if f < math.MinInt32 {
		return math.MinInt32, true
	}
	return int(f), true
}
