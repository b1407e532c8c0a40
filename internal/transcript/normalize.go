// Package transcript normalizes raw speech-to-text engine output before
// delivery.
package transcript

import "strings"

// Options controls transcript normalization behavior.
type Options struct {
	TrailingSpace       bool
	CapitalizeSentences bool
}

// Normalize collapses whitespace runs in raw engine output and applies the
// configured casing and spacing rules. Whitespace-only input normalizes to
// the empty string.
func Normalize(text string, opts Options) string {
	normalized := strings.Join(strings.Fields(text), " ")
	if normalized == "" {
		return ""
	}

	if opts.CapitalizeSentences {
		normalized = capitalizeSentences(normalized)
	}

	if opts.TrailingSpace {
		return normalized + " "
	}
	return normalized
}

func capitalizeSentences(text string) string {
	text = capitalizeSentenceStarts(text)
	text = pronounIContractionPattern.ReplaceAllStringFunc(text, func(match string) string {
		return "I" + match[1:]
	})
	return capitalizeStandalonePronounI(text)
}
