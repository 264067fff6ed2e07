package stream

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luminachat/msgpipe/internal/segment"
)

func collect() (*[]Update, func(Update)) {
	updates := &[]Update{}
	return updates, func(u Update) { *updates = append(*updates, u) }
}

func TestFeedAccumulatesDeltas(t *testing.T) {
	updates, onUpdate := collect()
	r := New(onUpdate)

	r.Feed([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"Hello\"}}]}\n\n"))
	r.Feed([]byte("data: {\"choices\":[{\"delta\":{\"content\":\", world\"}}]}\n\n"))
	r.Feed([]byte("data: [DONE]\n\n"))

	assert.Equal(t, StateDone, r.State())
	assert.Equal(t, "Hello, world", r.Text())

	require.NotEmpty(t, *updates)
	last := (*updates)[len(*updates)-1]
	assert.True(t, last.Done)
	assert.Equal(t, "Hello, world", last.Text)
}

func TestFeedSnapshotsAreMonotonic(t *testing.T) {
	updates, onUpdate := collect()
	r := New(onUpdate)

	for _, delta := range []string{"one ", "two ", "three"} {
		r.Feed([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"" + delta + "\"}}]}\n"))
	}
	r.Feed([]byte("data: [DONE]\n"))

	require.Len(t, *updates, 4)
	for i := 1; i < len(*updates); i++ {
		prev, cur := (*updates)[i-1], (*updates)[i]
		assert.True(t, strings.HasPrefix(cur.Text, prev.Text),
			"update %d regressed: %q -> %q", i, prev.Text, cur.Text)
	}
}

// A fence marker split across two deltas must still parse as a single code
// block once both halves have arrived.
func TestFeedFenceSplitAcrossChunks(t *testing.T) {
	updates, onUpdate := collect()
	r := New(onUpdate)

	r.Feed([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"```py\\nprint(\"}}]}\n"))
	r.Feed([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"1)\\n```\"}}]}\n"))
	r.Feed([]byte("data: [DONE]\n"))

	require.NotEmpty(t, *updates)
	final := (*updates)[len(*updates)-1]
	require.True(t, final.Done)

	var code []segment.Segment
	for _, seg := range final.Message.Segments {
		if seg.Kind == segment.KindCode {
			code = append(code, seg)
		}
	}
	require.Len(t, code, 1)
	assert.Equal(t, "print(1)", code[0].Content)
	assert.Equal(t, "py", code[0].Language)
}

func TestFeedUTF8SplitMidRune(t *testing.T) {
	r := New(nil)

	full := []byte("data: {\"choices\":[{\"delta\":{\"content\":\"héllo\"}}]}\n")
	cut := bytes.IndexByte(full, 0xC3) + 1 // between the two bytes of é
	r.Feed(full[:cut])
	r.Feed(full[cut:])
	r.Feed([]byte("data: [DONE]\n"))

	assert.Equal(t, "héllo", r.Text())
}

func TestFeedSkipsMalformedFrames(t *testing.T) {
	r := New(nil)

	r.Feed([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"ok \"}}]}\n"))
	r.Feed([]byte("data: {not json at all\n"))
	r.Feed([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"still ok\"}}]}\n"))
	r.Feed([]byte("data: [DONE]\n"))

	assert.Equal(t, StateDone, r.State())
	assert.Equal(t, "ok still ok", r.Text())
}

func TestFeedIgnoresCommentsAndBlankLines(t *testing.T) {
	updates, onUpdate := collect()
	r := New(onUpdate)

	r.Feed([]byte(": keep-alive\n\n\ndata: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n"))

	require.Len(t, *updates, 1)
	assert.Equal(t, "x", r.Text())
}

// Only data lines carry deltas. Other SSE fields and bare JSON lines must
// not be consumed as payloads even when their value happens to parse.
func TestFeedOnlyDataLinesCarryDeltas(t *testing.T) {
	r := New(nil)

	r.Feed([]byte("event: message\n"))
	r.Feed([]byte("id: 42\n"))
	r.Feed([]byte("{\"content\":\"not a delta\"}\n"))
	r.Feed([]byte("retry: 3000\n"))
	assert.Equal(t, "", r.Text())

	r.Feed([]byte("data: {\"content\":\"real delta\"}\n"))
	assert.Equal(t, "real delta", r.Text())
}

func TestExtractDeltaShapes(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		want    string
	}{
		{"openai chunk", `{"choices":[{"delta":{"content":"a"}}]}`, "a"},
		{"anthropic delta", `{"type":"content_block_delta","delta":{"text":"b"}}`, "b"},
		{"bare content", `{"content":"c"}`, "c"},
		{"content_block_start excluded", `{"type":"content_block_start","content":"skip"}`, ""},
		{"no text field", `{"choices":[{"finish_reason":"stop"}]}`, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := New(nil)
			r.Feed([]byte("data: " + tc.payload + "\n"))
			assert.Equal(t, tc.want, r.Text())
		})
	}
}

func TestCancelDropsLaterChunks(t *testing.T) {
	updates, onUpdate := collect()
	r := New(onUpdate)

	r.Feed([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n"))
	r.Cancel()
	before := len(*updates)

	r.Feed([]byte("data: {\"choices\":[{\"delta\":{\"content\":\" more\"}}]}\n"))
	r.Flush()

	assert.Equal(t, StateCancelled, r.State())
	assert.Equal(t, "partial", r.Text())
	assert.Len(t, *updates, before)
}

func TestFlushHandlesPendingLine(t *testing.T) {
	r := New(nil)

	// No trailing newline: the line is still pending when EOF arrives.
	r.Feed([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"tail\"}}]}"))
	assert.Equal(t, "", r.Text())

	r.Flush()

	assert.Equal(t, StateDone, r.State())
	assert.Equal(t, "tail", r.Text())
}

func TestFeedText(t *testing.T) {
	updates, onUpdate := collect()
	r := New(onUpdate)

	r.FeedText("a complete answer")

	assert.Equal(t, StateDone, r.State())
	require.Len(t, *updates, 1)
	assert.True(t, (*updates)[0].Done)
	assert.Equal(t, "a complete answer", (*updates)[0].Text)
}

func TestTransformAppliedBeforeParse(t *testing.T) {
	updates, onUpdate := collect()
	r := New(onUpdate)
	r.Transform = strings.ToUpper

	r.FeedText("quiet words")

	require.Len(t, *updates, 1)
	assert.Equal(t, "QUIET WORDS", (*updates)[0].Text)
	assert.Equal(t, "quiet words", r.Text(), "raw accumulation is untransformed")
}

// Raw accumulation grows monotonically even when the transform collapses
// a token once it completes and the emitted view shrinks.
func TestTransformedViewMayContract(t *testing.T) {
	updates, onUpdate := collect()
	r := New(onUpdate)
	r.Transform = func(text string) string {
		return strings.ReplaceAll(text, "secret-token-abcdef", "[redacted]")
	}

	var raw []string
	feed := func(delta string) {
		r.Feed([]byte("data: {\"content\":\"" + delta + "\"}\n"))
		raw = append(raw, r.Text())
	}
	feed("key secret-token-abc")
	feed("def done")

	for i := 1; i < len(raw); i++ {
		assert.True(t, strings.HasPrefix(raw[i], raw[i-1]))
	}

	require.Len(t, *updates, 2)
	assert.Equal(t, "key secret-token-abc", (*updates)[0].Text)
	assert.Equal(t, "key [redacted] done", (*updates)[1].Text)
}

func TestConsumeToEOF(t *testing.T) {
	r := New(nil)
	body := io.NopCloser(strings.NewReader(
		"data: {\"choices\":[{\"delta\":{\"content\":\"streamed\"}}]}\n\ndata: [DONE]\n"))

	err := r.Consume(context.Background(), body)

	require.NoError(t, err)
	assert.Equal(t, StateDone, r.State())
	assert.Equal(t, "streamed", r.Text())
}

func TestConsumeContextCancelled(t *testing.T) {
	r := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Consume(ctx, io.NopCloser(strings.NewReader("data: [DONE]\n")))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateCancelled, r.State())
}
