package provider

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
)

// Apology is the static, user-safe message returned when every provider in
// the chain has failed. Raw provider errors never reach the consumer.
const Apology = "I'm having trouble reaching the language model right now. Please try again in a moment."

// Chain tries providers in priority order. A transient failure (network
// error, non-OK status, empty body) falls through to the next entry;
// exhaustion yields the apology text as a normal, non-streaming result.
type Chain struct {
	providers []Provider
}

// NewChain builds a failover chain. Order is priority order.
func NewChain(providers ...Provider) *Chain {
	return &Chain{providers: providers}
}

// Providers returns the chain entries in priority order.
func (c *Chain) Providers() []Provider { return c.providers }

// Complete walks the chain until a provider answers. Context cancellation
// stops the walk immediately and is reported as an error — it is the one
// failure mode the apology does not mask.
func (c *Chain) Complete(ctx context.Context, messages []Message, stream bool) (*Result, error) {
	var errs []error
	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := p.Complete(ctx, messages, stream)
		if err == nil && result != nil {
			return result, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		log.WithFields(log.Fields{
			"provider": p.Name(),
		}).Warnf("provider failed, trying next: %v", err)
		errs = append(errs, err)
	}

	log.WithField("attempts", len(errs)).Warn("all providers exhausted, returning fallback response")
	return &Result{Text: Apology}, nil
}
