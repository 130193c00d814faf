package summarizer

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"rosary-digest/internal/segment"
)

// Extractive builds a digest by scoring and selecting sentences from
// the meditation content. It is the terminal backend of the
// summarization chain: it is deterministic, fully offline, and cannot
// fail — any internal fault substitutes a fixed generic digest.
type Extractive struct {
	Keywords     []string // thematic vocabulary, scored positively
	IntroPhrases []string // introduction tells, scored negatively
	MaxBullets   int      // content bullets per digest, artwork included
	MinBullets   int      // padded up to this with the filler bullet
	Filler       string
	Closing      string
	LightMode    bool // cap bullets at available candidates, minimum 3
}

// DefaultKeywords is the fixed meditation vocabulary used for scoring.
func DefaultKeywords() []string {
	return []string{
		"mystery", "contemplate", "meditate", "reflect", "prayer",
		"god", "jesus", "mary", "rosary", "faith", "holy", "blessed",
		"scripture", "gospel", "christ", "lord", "divine", "grace",
		"salvation", "redemption", "incarnation", "resurrection",
	}
}

// DefaultIntroPhrases lists phrases typical of the daily introduction.
func DefaultIntroPhrases() []string {
	return []string{"welcome", "hello", "today we begin", "i am", "this is"}
}

const (
	defaultFiller  = "Trust in God's providence and Mary's intercession."
	defaultClosing = "Simple summary for hand copying and reflection"
)

// NewExtractive returns the summarizer with the fixed default tuning.
func NewExtractive() *Extractive {
	return &Extractive{
		Keywords:     DefaultKeywords(),
		IntroPhrases: DefaultIntroPhrases(),
		MaxBullets:   8,
		MinBullets:   6,
		Filler:       defaultFiller,
		Closing:      defaultClosing,
	}
}

func (e *Extractive) Name() string { return "simple" }

// Run implements the chain backend. It never returns a non-nil error.
func (e *Extractive) Run(ctx context.Context, content segment.Content) (Digest, error) {
	return e.Summarize(content.TopicalText), nil
}

var sentenceSplit = regexp.MustCompile(`[.!?]+`)

// Summarize produces a digest from the meditation content. Total
// function: whatever the input, the caller gets a usable digest.
func (e *Extractive) Summarize(topical string) (d Digest) {
	defer func() {
		if r := recover(); r != nil {
			d = e.genericDigest()
		}
	}()

	artwork, hasArtwork := segment.ExtractArtwork(topical)

	candidates := e.splitSentences(topical)
	scored := e.scoreSentences(candidates)

	// Stable descending sort: ties keep original sentence order.
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	var bullets []string
	if hasArtwork {
		bullets = append(bullets, artwork)
		d.ArtworkNote = artwork
	}

	n := e.MaxBullets
	if hasArtwork {
		n--
	}
	if e.LightMode {
		n = len(scored)
		if n > e.MaxBullets {
			n = e.MaxBullets
		}
		if n < 3 {
			n = 3
		}
	}
	if n > len(scored) {
		n = len(scored)
	}

	for _, s := range scored[:n] {
		bullets = append(bullets, finishBullet(s.text))
	}

	for len(bullets) < e.MinBullets {
		bullets = append(bullets, e.Filler)
	}

	d.Bullets = bullets
	d.Closing = e.Closing
	d.ProducedBy = e.Name()
	return d
}

type scoredSentence struct {
	text  string
	score int
}

func (e *Extractive) splitSentences(text string) []string {
	var out []string
	for _, s := range sentenceSplit.Split(text, -1) {
		s = strings.TrimSpace(s)
		if len(s) > 20 {
			out = append(out, s)
		}
	}
	return out
}

// scoreSentences applies the fixed heuristic: one point per keyword
// present, minus one per introduction phrase present, plus a length
// bucket bonus favoring bullet-sized sentences.
func (e *Extractive) scoreSentences(sentences []string) []scoredSentence {
	scored := make([]scoredSentence, 0, len(sentences))
	for _, s := range sentences {
		lower := strings.ToLower(s)

		score := 0
		for _, kw := range e.Keywords {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		for _, phrase := range e.IntroPhrases {
			if strings.Contains(lower, phrase) {
				score--
			}
		}

		switch {
		case len(s) >= 30 && len(s) <= 150:
			score += 2
		case len(s) <= 200:
			score++
		}

		scored = append(scored, scoredSentence{text: s, score: score})
	}
	return scored
}

// finishBullet trims an over-long sentence to 147 bytes plus an
// ellipsis, never splitting a rune, and guarantees terminal punctuation.
func finishBullet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 150 {
		cut := 147
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + "..."
	}
	if !strings.HasSuffix(s, ".") {
		s += "."
	}
	return s
}

// genericDigest is the fixed template substituted when summarization
// faults internally.
func (e *Extractive) genericDigest() Digest {
	return Digest{
		Bullets: []string{
			"Today's meditation focuses on spiritual growth and devotion.",
			"Trust in God's plan and follow Mary's example of faith.",
			"Pray the rosary with contemplation of the mysteries.",
			"Seek God's grace in daily challenges and decisions.",
			"Practice humility and service to others in need.",
			"Find peace through prayer and trust in divine providence.",
		},
		Closing:    "Simple meditation summary for reflection",
		ProducedBy: e.Name(),
	}
}
