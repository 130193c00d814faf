// Package transcriber converts a downloaded episode into text through a
// fallback chain of speech-to-text backends: the paid API first, then
// two local-model variants, then a free cloud dictation service. Unlike
// summarization there is no analytic last resort — nothing can be
// synthesized from audio alone — so exhausting the chain is fatal for
// the run.
package transcriber

import (
	"context"

	"rosary-digest/internal/chain"
)

// Input identifies the local audio file handed to the chain.
type Input struct {
	Path   string
	Format string // audio container, e.g. "mp3"
}

// Transcript is the plain-prose output of whichever backend succeeded
// first. At most one transcript is produced per run.
type Transcript struct {
	Text       string
	ProducedBy string
}

// Backend is one speech-to-text strategy.
type Backend = chain.Backend[Input, string]

// Chain is the ordered transcription fallback chain.
type Chain struct {
	inner *chain.Chain[Input, string]
}

// NewChain assembles backends in fixed priority order.
func NewChain(backends ...Backend) *Chain {
	return &Chain{inner: chain.New("transcribe", backends...)}
}

// Transcribe runs the chain. When every backend fails the returned
// error wraps chain.ErrExhausted and the caller must abort the run.
func (c *Chain) Transcribe(ctx context.Context, in Input) (Transcript, error) {
	text, name, err := c.inner.Execute(ctx, in)
	if err != nil {
		return Transcript{}, err
	}
	return Transcript{Text: text, ProducedBy: name}, nil
}
