package summarizer

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rosary-digest/internal/segment"
)

func TestExtractiveBulletBounds(t *testing.T) {
	inputs := []string{
		"short",
		"Prayer and faith guide us through the mysteries of the rosary every single day of our lives.",
		strings.Repeat("God is gracious and the gospel calls us to contemplate the divine mystery. ", 30),
		"no punctuation at all just one long run of words about grace and salvation and redemption for everyone",
	}

	e := NewExtractive()
	for _, in := range inputs {
		d := e.Summarize(in)
		assert.GreaterOrEqual(t, len(d.Bullets), 6, "input %q", in)
		assert.LessOrEqual(t, len(d.Bullets), 9, "input %q", in)
		for _, b := range d.Bullets {
			assert.LessOrEqual(t, len(b), 150, "bullet %q", b)
		}
		assert.Equal(t, "simple", d.ProducedBy)
	}
}

func TestExtractivePadsWithFiller(t *testing.T) {
	e := NewExtractive()
	d := e.Summarize("Only one sentence about prayer and divine grace here.")

	require.GreaterOrEqual(t, len(d.Bullets), 6)
	assert.Equal(t, "Trust in God's providence and Mary's intercession.", d.Bullets[len(d.Bullets)-1])
}

func TestExtractiveArtworkBulletFirst(t *testing.T) {
	text := "This meditation uses a painting by Fra Angelico. " +
		"Prayer draws us deeper into the mystery of the incarnation every day. " +
		"Mary shows us what faith looks like when grace meets an open heart. " +
		"The gospel invites contemplation of Christ and his divine mercy always. " +
		"Salvation is the promise held out to all who trust in the Lord. " +
		"Scripture grounds the rosary in the life of Jesus and his mother. " +
		"Redemption flows from the cross into every corner of daily life. " +
		"Holy patience grows when we meditate on the sorrowful mysteries. " +
		"Blessed are those who reflect on the resurrection with hope."

	e := NewExtractive()
	d := e.Summarize(text)

	require.NotEmpty(t, d.Bullets)
	assert.Equal(t, "Artwork: By Fra Angelico", d.Bullets[0])
	assert.Equal(t, "Artwork: By Fra Angelico", d.ArtworkNote)
	// One content slot is given up for the artwork bullet.
	assert.Len(t, d.Bullets, 8)
}

func TestExtractivePrefersKeywordRichSentences(t *testing.T) {
	intro := strings.Repeat("The weather was fine and nothing in particular happened on the walk over here today. ", 4)
	rich := []string{
		"Today we'll be meditating on trust in God and his providence.",
		"The mystery of the incarnation invites deep prayer and contemplation.",
		"Mary's faith at the annunciation shows us perfect trust in the Lord.",
		"Christ reveals divine grace through the gospel narratives we ponder.",
		"The rosary leads us to contemplate salvation and redemption daily.",
		"Scripture and prayer anchor our reflection on the blessed mysteries.",
		"Holy contemplation of the resurrection fills the soul with hope.",
		"God's grace works through faith, prayer, and quiet meditation.",
	}
	transcript := intro + strings.Join(rich, " ")

	e := NewExtractive()
	content := segment.Split(transcript, segment.DefaultMarkers())
	require.Equal(t, "today we'll be meditating", content.MarkerUsed)

	d, err := e.Run(context.Background(), content)
	require.NoError(t, err)

	// All selected bullets come from the keyword-rich region, none from
	// the discarded introduction.
	for _, b := range d.Bullets {
		assert.NotContains(t, b, "weather")
	}
	assert.Len(t, d.Bullets, 8)
}

func TestExtractiveTruncatesLongSentences(t *testing.T) {
	long := "Prayer and faith and grace and the gospel and the rosary together call every believer to contemplate the mystery of divine salvation with a patient, humble, and persevering heart throughout life"
	e := NewExtractive()
	d := e.Summarize(long + ". Short filler on holy prayer and grace here too.")

	found := false
	for _, b := range d.Bullets {
		if strings.HasSuffix(b, "...") && len(b) == 150 {
			found = true
		}
	}
	assert.True(t, found, "expected a truncated 147+ellipsis bullet")
}

func TestFinishBulletKeepsRunesIntact(t *testing.T) {
	// 200 bytes of 2-byte runes puts the 147-byte cut mid-rune.
	b := finishBullet(strings.Repeat("é", 100))

	assert.True(t, utf8.ValidString(b))
	assert.LessOrEqual(t, len(b), 150)
	assert.True(t, strings.HasSuffix(b, "..."))
}

func TestExtractiveNeverFails(t *testing.T) {
	e := NewExtractive()
	for _, in := range []string{"", "....", "!!!", strings.Repeat(".", 500), "\x00\xff garbage"} {
		assert.NotPanics(t, func() {
			d := e.Summarize(in)
			assert.NotEmpty(t, d.Bullets)
		})
	}
}

func TestExtractiveLightMode(t *testing.T) {
	e := NewExtractive()
	e.LightMode = true
	e.MinBullets = 3

	d := e.Summarize("Grace and prayer sustain the faithful through every trial. " +
		"The rosary is a school of contemplation for ordinary days.")

	assert.GreaterOrEqual(t, len(d.Bullets), 3)
	assert.LessOrEqual(t, len(d.Bullets), e.MaxBullets)
}

func TestExtractiveStableTieOrder(t *testing.T) {
	// Two sentences with identical scores must appear in original order.
	a := "Grace fills the heart of everyone who prays with trust."
	b := "Grace meets the soul of anyone who prays with hope today."
	e := NewExtractive()
	e.MinBullets = 0

	d := e.Summarize(a + ". " + b + ".")
	require.Len(t, d.Bullets, 2)
	assert.Equal(t, finishBullet(a), d.Bullets[0])
	assert.Equal(t, finishBullet(b), d.Bullets[1])
}
