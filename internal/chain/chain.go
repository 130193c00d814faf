// Package chain implements ordered fallback execution over unreliable
// backends: strategies are tried strictly in order and the first success
// wins. A failing backend never aborts the chain; its error is classified,
// logged, and the next strategy gets its one attempt.
package chain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/go-pkgz/lgr"
)

// Backend is one concrete strategy usable inside a fallback chain.
type Backend[I, O any] interface {
	Name() string
	Run(ctx context.Context, in I) (O, error)
}

// ErrExhausted is reported when every backend in a chain has failed.
var ErrExhausted = errors.New("all backends failed")

// Attempt records the outcome of a single backend invocation.
type Attempt struct {
	Backend string
	Reason  Reason
	Err     error
}

// Chain executes backends in order with first-success-wins semantics.
type Chain[I, O any] struct {
	name     string
	backends []Backend[I, O]
}

// New creates a chain with the given backends in priority order.
func New[I, O any](name string, backends ...Backend[I, O]) *Chain[I, O] {
	return &Chain[I, O]{name: name, backends: backends}
}

// Execute tries each backend once, in order. It returns the first
// successful value together with the name of the backend that produced
// it. If every backend fails it returns ErrExhausted wrapping the last
// backend error; the full attempt log is available via the error message.
func (c *Chain[I, O]) Execute(ctx context.Context, in I) (O, string, error) {
	var zero O
	var attempts []Attempt

	for _, b := range c.backends {
		if err := ctx.Err(); err != nil {
			return zero, "", err
		}

		out, err := c.runOne(ctx, b, in)
		if err == nil {
			log.Printf("[INFO] %s: backend %s succeeded", c.name, b.Name())
			return out, b.Name(), nil
		}

		reason := Classify(err)
		attempts = append(attempts, Attempt{Backend: b.Name(), Reason: reason, Err: err})
		log.Printf("[WARN] %s: backend %s failed (%s), trying next: %v", c.name, b.Name(), reason, err)
	}

	return zero, "", fmt.Errorf("%s: %w: %s", c.name, ErrExhausted, summarize(attempts))
}

// runOne invokes a single backend, converting a panic inside the backend
// into an ordinary error so one broken strategy cannot take down the run.
func (c *Chain[I, O]) runOne(ctx context.Context, b Backend[I, O], in I) (out O, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("backend %s panicked: %v", b.Name(), r)
		}
	}()
	return b.Run(ctx, in)
}

func summarize(attempts []Attempt) string {
	parts := make([]string, 0, len(attempts))
	for _, a := range attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Backend, a.Err))
	}
	return strings.Join(parts, "; ")
}
