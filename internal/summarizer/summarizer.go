// Package summarizer turns a segmented transcript into a bulleted
// digest, degrading gracefully from the paid API through browser
// automation down to the offline extractive engine. The chain never
// fails overall: the extractive terminal backend has no failure path.
package summarizer

import (
	"context"

	"rosary-digest/internal/chain"
	"rosary-digest/internal/segment"
)

// Chain is the ordered summarization fallback chain.
type Chain struct {
	inner *chain.Chain[segment.Content, Digest]
}

// NewChain assembles the backends in fixed priority order. The
// extractive summarizer goes last and guarantees a digest.
func NewChain(backends ...Backend) *Chain {
	return &Chain{inner: chain.New("summarize", backends...)}
}

// Summarize runs the chain. The returned digest carries the identifier
// of the backend that produced it; err is non-nil only when the chain
// was assembled without its terminal backend or the context is done.
func (c *Chain) Summarize(ctx context.Context, content segment.Content) (Digest, error) {
	d, name, err := c.inner.Execute(ctx, content)
	if err != nil {
		return Digest{}, err
	}
	d.ProducedBy = name
	return d, nil
}
