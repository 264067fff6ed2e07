package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name   string
	result *Result
	err    error
	calls  int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Complete(ctx context.Context, messages []Message, stream bool) (*Result, error) {
	f.calls++
	return f.result, f.err
}

func TestChainFirstProviderWins(t *testing.T) {
	first := &fakeProvider{name: "first", result: &Result{Text: "hello"}}
	second := &fakeProvider{name: "second", result: &Result{Text: "unused"}}
	chain := NewChain(first, second)

	result, err := chain.Complete(context.Background(), nil, false)

	require.NoError(t, err)
	assert.Equal(t, "hello", result.Text)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, second.calls, "fallback must not be contacted")
}

func TestChainFailover(t *testing.T) {
	broken := &fakeProvider{name: "broken", err: &StatusError{Provider: "broken", Code: 500}}
	backup := &fakeProvider{name: "backup", result: &Result{Text: "from backup"}}
	chain := NewChain(broken, backup)

	result, err := chain.Complete(context.Background(), nil, false)

	require.NoError(t, err)
	assert.Equal(t, "from backup", result.Text)
	assert.Equal(t, 1, broken.calls)
	assert.Equal(t, 1, backup.calls)
}

func TestChainExhaustionReturnsApology(t *testing.T) {
	a := &fakeProvider{name: "a", err: errors.New("dial tcp: refused")}
	b := &fakeProvider{name: "b", err: &StatusError{Provider: "b", Code: 429}}
	chain := NewChain(a, b)

	result, err := chain.Complete(context.Background(), nil, false)

	require.NoError(t, err, "exhaustion is a normal outcome, not an error")
	assert.Equal(t, Apology, result.Text)
	assert.False(t, result.Streaming())
}

func TestChainEmptyReturnsApology(t *testing.T) {
	result, err := NewChain().Complete(context.Background(), nil, false)

	require.NoError(t, err)
	assert.Equal(t, Apology, result.Text)
}

func TestChainContextCancellationPassesThrough(t *testing.T) {
	untouched := &fakeProvider{name: "untouched", result: &Result{Text: "x"}}
	chain := NewChain(untouched)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := chain.Complete(ctx, nil, false)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
	assert.Equal(t, 0, untouched.calls)
}

func TestChainProviderCancellationNotMasked(t *testing.T) {
	cancelled := &fakeProvider{name: "cancelled", err: context.Canceled}
	backup := &fakeProvider{name: "backup", result: &Result{Text: "x"}}
	chain := NewChain(cancelled, backup)

	_, err := chain.Complete(context.Background(), nil, false)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, backup.calls, "cancellation stops the walk")
}

func TestStatusErrorMessage(t *testing.T) {
	err := &StatusError{Provider: "openai", Code: 503, Body: "overloaded"}

	assert.Equal(t, 503, err.StatusCode())
	assert.Contains(t, err.Error(), "openai")
	assert.Contains(t, err.Error(), "503")
}
