package segment

import (
	"regexp"
	"strings"
	"unicode"
)

// artworkPatterns describe how an episode mentions the painting it
// meditates on. First pattern that matches anywhere wins; there is no
// scoring across alternatives.
var artworkPatterns = []*regexp.Regexp{
	regexp.MustCompile(`painting\s+(?:by\s+|from\s+)?([^.]+)`),
	regexp.MustCompile(`artwork\s+(?:by\s+|from\s+)?([^.]+)`),
	regexp.MustCompile(`image\s+(?:by\s+|from\s+)?([^.]+)`),
	regexp.MustCompile(`(?:the\s+)?([^.]+)\s+by\s+([^.]+)`),
	regexp.MustCompile(`artist\s+([^.]+)`),
}

var artworkWords = strings.NewReplacer("painting", "", "artwork", "", "image", "")

var whitespace = regexp.MustCompile(`\s+`)

// ExtractArtwork pulls a referenced artwork/artist mention out of the
// meditation text, formatted as "Artwork: <Title-Cased Mention>".
// Matches that are too short after cleanup are discarded as likely
// false positives.
func ExtractArtwork(text string) (string, bool) {
	lower := strings.ToLower(text)

	for _, pattern := range artworkPatterns {
		match := pattern.FindString(lower)
		if match == "" {
			continue
		}

		cleaned := artworkWords.Replace(match)
		cleaned = strings.TrimSpace(whitespace.ReplaceAllString(cleaned, " "))
		if len(cleaned) <= 5 {
			continue
		}
		return "Artwork: " + titleCase(cleaned), true
	}

	return "", false
}

// titleCase capitalizes the first letter of every word and lowercases
// the rest, word by word.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	startOfWord := true
	for _, r := range s {
		switch {
		case !unicode.IsLetter(r):
			startOfWord = true
			b.WriteRune(r)
		case startOfWord:
			startOfWord = false
			b.WriteRune(unicode.ToUpper(r))
		default:
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
