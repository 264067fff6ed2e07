// Package provider defines the completion-provider interface the pipeline
// consumes, a concrete OpenAI-compatible HTTP client, and a priority
// failover chain. The pipeline core does not care which concrete provider
// answers; it only needs a complete string or a byte stream of SSE frames.
package provider

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// Message is one entry of the ordered conversation sent to a provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Result is the provider outcome: exactly one of Text (complete response)
// or Body (SSE frame stream, owned by the caller) is set.
type Result struct {
	Text string
	Body io.ReadCloser
}

// Streaming reports whether the result must be drained from Body.
func (r *Result) Streaming() bool { return r != nil && r.Body != nil }

// Provider produces a completion for an ordered message list.
type Provider interface {
	Name() string
	Complete(ctx context.Context, messages []Message, stream bool) (*Result, error)
}

// StatusError is a non-OK upstream response. It is transient from the
// chain's point of view: the next provider in priority order is tried.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		return fmt.Sprintf("%s: status %d", e.Provider, e.Code)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Code, msg)
}

// StatusCode returns the upstream HTTP status.
func (e *StatusError) StatusCode() int { return e.Code }
