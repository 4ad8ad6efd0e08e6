package prompt

import "strings"

var fillerWords = map[string]bool{
	"um":        true,
	"uh":        true,
	"like":      true,
	"so":        true,
	"well":      true,
	"actually":  true,
	"basically": true,
}

// FromSpeech turns a transcribed utterance into a video prompt. Filler words
// and the phrase "you know" are dropped as whole words; short results get a
// quality suffix.
func FromSpeech(text string) string {
	words := strings.Fields(text)
	kept := make([]string, 0, len(words))
	for i := 0; i < len(words); i++ {
		bare := bareWord(words[i])
		if bare == "you" && i+1 < len(words) && bareWord(words[i+1]) == "know" {
			i++
			continue
		}
		if bare == "" || fillerWords[bare] {
			continue
		}
		kept = append(kept, words[i])
	}
	cleaned := strings.Join(kept, " ")

	switch {
	case cleaned == "":
		return ""
	case len(cleaned) < 15:
		return "High-quality cinematic video of " + cleaned + ", professional lighting, detailed visuals, smooth camera movement"
	case len(cleaned) < 30:
		return "Cinematic shot of " + cleaned + ", professional quality, detailed"
	default:
		return cleaned
	}
}

func bareWord(w string) string {
	return strings.ToLower(strings.Trim(w, ",.!?;:"))
}
