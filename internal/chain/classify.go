package chain

import (
	"context"
	"errors"
	"strings"
)

// Reason buckets a backend failure for logging and exhaustion reports.
// Every bucket is skip-worthy: classification never stops the chain.
type Reason string

const (
	// ReasonUnavailable means the backend's dependency or capability is
	// missing entirely (binary not installed, feature not configured).
	ReasonUnavailable Reason = "unavailable"
	// ReasonNotFound means a requested model or resource does not exist.
	ReasonNotFound Reason = "not_found"
	// ReasonTransient covers quota, rate limiting, timeouts and network
	// failures that might not recur.
	ReasonTransient Reason = "transient"
	// ReasonUnknown is everything else, including backend panics.
	ReasonUnknown Reason = "unknown"
)

// ErrUnavailable marks a backend whose prerequisites are missing.
// Backends wrap it so Classify does not have to guess from message text.
var ErrUnavailable = errors.New("backend unavailable")

// Classify buckets an error by sentinel match first, then by message
// content for errors coming back from external services.
func Classify(err error) Reason {
	if err == nil {
		return ReasonUnknown
	}
	if errors.Is(err, ErrUnavailable) {
		return ReasonUnavailable
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTransient
	}

	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "does not exist"),
		strings.Contains(msg, "model_not_found"),
		strings.Contains(msg, "status 404"):
		return ReasonNotFound
	case strings.Contains(msg, "quota"),
		strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "429"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "temporary failure"),
		strings.Contains(msg, "network"),
		strings.Contains(msg, "status 5"):
		return ReasonTransient
	case strings.Contains(msg, "executable file not found"),
		strings.Contains(msg, "not installed"),
		strings.Contains(msg, "not configured"):
		return ReasonUnavailable
	}

	return ReasonUnknown
}
