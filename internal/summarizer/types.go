package summarizer

import (
	"strings"
	"unicode/utf8"

	"rosary-digest/internal/chain"
	"rosary-digest/internal/segment"
)

// Digest is the structured bulleted summary produced for delivery.
// Exactly one digest is produced per run, by whichever backend in the
// summarization chain succeeds first.
type Digest struct {
	Bullets     []string // ordered; artwork bullet first when present
	ArtworkNote string   // "Artwork: ..." or empty
	Closing     string   // closing reflection line, rendered in italics
	Raw         string   // verbatim backend output, when there is one
	ProducedBy  string   // backend identifier
}

// Render produces the delivery text. Backends that return free-form
// text are passed through verbatim; structured digests are assembled
// in the fixed bullet layout.
func (d *Digest) Render() string {
	if d.Raw != "" {
		return d.Raw
	}

	var b strings.Builder
	b.WriteString("**🙏 Meditation Summary**\n\n")
	for i, bullet := range d.Bullets {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("• ")
		b.WriteString(bullet)
	}
	if d.Closing != "" {
		b.WriteString("\n\n*")
		b.WriteString(d.Closing)
		b.WriteString("*")
	}
	return b.String()
}

// Backend is one digest-producing strategy in the summarization chain.
type Backend = chain.Backend[segment.Content, Digest]

// parseDigest lifts free-form LLM output into the structured form,
// keeping the raw text verbatim for delivery. Lines that look like
// bullets are collected; a line wrapped in single asterisks becomes
// the closing reflection.
func parseDigest(raw, producedBy string) Digest {
	d := Digest{Raw: strings.TrimSpace(raw), ProducedBy: producedBy}

	for _, line := range strings.Split(d.Raw, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "• "), strings.HasPrefix(line, "- "), strings.HasPrefix(line, "* "):
			bullet := strings.TrimSpace(strings.TrimLeft(line, "•-* "))
			if strings.HasPrefix(bullet, "Artwork:") && d.ArtworkNote == "" {
				d.ArtworkNote = bullet
			}
			d.Bullets = append(d.Bullets, bullet)
		case len(line) > 2 && strings.HasPrefix(line, "*") && strings.HasSuffix(line, "*") && !strings.HasPrefix(line, "**"):
			d.Closing = strings.Trim(line, "*")
		}
	}

	return d
}

// truncateInput caps prompt input at a per-backend ceiling, cutting on
// a rune boundary.
func truncateInput(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max] + "..."
}
