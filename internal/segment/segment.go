// Package segment splits a raw homily transcript into the introductory
// part and the meditation content proper, using ordered textual markers.
// Everything here is a pure function of its input: no I/O, no state, and
// a conservative fallback instead of an error on malformed text.
package segment

import "strings"

// Markers holds the phrases that signal the start of the meditation.
// The primary marker is tried first, then the backups in listed order.
type Markers struct {
	Primary string
	Backups []string
}

// DefaultMarkers covers the phrasings heard across episodes, including
// transcription variations of the primary one.
func DefaultMarkers() Markers {
	return Markers{
		Primary: "today we'll be meditating",
		Backups: []string{
			"today we will be meditating",
			"today we're meditating",
			"today we are meditating",
			"we'll be meditating",
			"we will be meditating",
			"let us meditate",
			"we meditate on",
			"today's meditation",
		},
	}
}

// Content is the result of segmenting a transcript.
type Content struct {
	FullText       string
	TopicalText    string
	BoundaryOffset int
	MarkerUsed     string // empty when the 25% heuristic was used
}

// Split locates the meditation boundary. Matching is case-insensitive;
// the topical text keeps the original casing from the boundary onward.
// When no marker occurs at all the first quarter of the text is assumed
// to be the daily introduction and discarded.
func Split(text string, markers Markers) Content {
	lower := strings.ToLower(text)

	candidates := append([]string{markers.Primary}, markers.Backups...)
	for _, marker := range candidates {
		if marker == "" {
			continue
		}
		if pos := strings.Index(lower, strings.ToLower(marker)); pos != -1 {
			return Content{
				FullText:       text,
				TopicalText:    strings.TrimSpace(text[pos:]),
				BoundaryOffset: pos,
				MarkerUsed:     marker,
			}
		}
	}

	skip := len(text) / 4
	return Content{
		FullText:       text,
		TopicalText:    strings.TrimSpace(text[skip:]),
		BoundaryOffset: skip,
	}
}
