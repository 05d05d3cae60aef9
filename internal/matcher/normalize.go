package matcher

import (
	"regexp"
	"strings"
)

var (
	bracketed   = regexp.MustCompile(`[\(\[].*?[\)\]]`)
	noiseWords  = regexp.MustCompile(`deluxe|explicit|remastered|feat\.|ft\.`)
	nonWordChar = regexp.MustCompile(`[^\p{L}\p{M}\p{N}_\s\p{Zs}]`)
)

// Normalize canonicalizes a title or artist name for fuzzy comparison.
//
// It lower-cases, drops bracketed segments such as "(Live)" or "[2011 Remaster]", removes edition and
// featuring markers, strips punctuation and symbols, and trims. Letters, marks and digits of every script are kept.
//
// The passes repeat until nothing changes, since stripping can expose a new marker ("del.uxe").
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ToLower(text)
	for {
		next := bracketed.ReplaceAllString(text, "")
		next = noiseWords.ReplaceAllString(next, "")
		next = nonWordChar.ReplaceAllString(next, "")
		next = strings.TrimSpace(next)
		if next == text {
			return next
		}
		text = next
	}
}
