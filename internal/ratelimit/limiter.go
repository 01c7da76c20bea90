// Package ratelimit provides fixed-window request throttling keyed by
// (identifier, action) pairs, e.g. a normalized email and "password_reset".
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Result reports the outcome of a limiter evaluation
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration // set when Allowed is false
}

// Limiter evaluates fixed-window quotas. Check never mutates state; Consume
// atomically checks and increments, so two concurrent calls at limit-1 can
// never both succeed.
type Limiter interface {
	Check(ctx context.Context, identifier, action string) (Result, error)
	Consume(ctx context.Context, identifier, action string) (Result, error)
}

// Error is returned by callers that convert a denied Result into an error.
// It carries the retry-after hint for the 429 response.
type Error struct {
	Action     string
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s, retry after %s", e.Action, e.RetryAfter)
}

func key(identifier, action string) string {
	return action + ":" + identifier
}
