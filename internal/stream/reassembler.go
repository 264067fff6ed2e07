// Package stream reassembles an incremental completion stream into a
// coherent, re-renderable message. Inbound bytes are UTF-8 decoded with
// carry across chunk boundaries, split into SSE event lines, and each
// parsed delta appends to the accumulated text; the entire accumulated
// string is then re-segmented and pushed to the consumer. Re-rendering is
// always computed from the full accumulated text, never from a diff, so a
// fence marker split across two chunks cannot produce inconsistent
// segment boundaries.
package stream

import (
	"context"
	"io"
	"strings"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/luminachat/msgpipe/internal/segment"
)

// State is the reassembler lifecycle: STREAMING until the end marker,
// completion, or cancellation.
type State int

const (
	StateStreaming State = iota
	StateDone
	StateCancelled
)

// String returns the lifecycle name.
func (s State) String() string {
	switch s {
	case StateDone:
		return "done"
	case StateCancelled:
		return "cancelled"
	default:
		return "streaming"
	}
}

// doneMarker is the literal SSE payload that terminates a stream.
const doneMarker = "[DONE]"

// Update is one snapshot pushed to the consumer. Text is the full
// accumulated string at the time the snapshot was computed and Message is
// the segment view derived from exactly that string.
type Update struct {
	Text    string
	Message segment.ParsedMessage
	Done    bool
}

// Reassembler owns the state of one in-flight response. It has a single
// writer — the goroutine feeding it chunks — and must not be shared.
type Reassembler struct {
	// Transform, when set, rewrites the accumulated text before each
	// re-parse (the output filter hook). It must be pure. Monotonic growth
	// holds for the raw accumulated text only: a transform may collapse a
	// token the moment it completes (a credential redaction, say), so the
	// emitted view can shrink between consecutive snapshots.
	Transform func(string) string

	emit func(Update)

	carry       []byte // pending partial multi-byte sequence
	lineBuf     string // pending partial event line
	accumulated strings.Builder
	state       State
}

// New builds a reassembler pushing snapshots to onUpdate. A nil onUpdate
// is allowed; accumulated text is still available via Text.
func New(onUpdate func(Update)) *Reassembler {
	return &Reassembler{emit: onUpdate}
}

// State reports the current lifecycle state.
func (r *Reassembler) State() State { return r.state }

// Text returns the accumulated text so far.
func (r *Reassembler) Text() string { return r.accumulated.String() }

// Message returns the segment view of the current accumulated text.
func (r *Reassembler) Message() segment.ParsedMessage {
	return segment.Parse(r.transformed())
}

// Feed consumes one chunk of raw stream bytes. Chunks arriving after the
// stream finished or was cancelled are dropped: a terminated stream never
// resurrects.
func (r *Reassembler) Feed(chunk []byte) {
	if r.state != StateStreaming || len(chunk) == 0 {
		return
	}

	r.lineBuf += r.decode(chunk)

	for {
		idx := strings.IndexByte(r.lineBuf, '\n')
		if idx < 0 {
			return
		}
		line := r.lineBuf[:idx]
		r.lineBuf = r.lineBuf[idx+1:]
		r.handleLine(line)
		if r.state != StateStreaming {
			return
		}
	}
}

// FeedText accepts a complete-string provider result through the same
// consumer interface as the streaming path.
func (r *Reassembler) FeedText(text string) {
	if r.state != StateStreaming {
		return
	}
	r.accumulated.WriteString(text)
	r.finish()
}

// Flush processes any pending partial line and marks the stream done.
// Call it when the transport reaches EOF without an explicit end marker.
func (r *Reassembler) Flush() {
	if r.state != StateStreaming {
		return
	}
	if line := r.lineBuf; line != "" {
		r.lineBuf = ""
		r.handleLine(line)
	}
	if r.state == StateStreaming {
		r.finish()
	}
}

// Cancel aborts the stream. Partial accumulated text remains the final
// rendered state; no further updates are emitted.
func (r *Reassembler) Cancel() {
	if r.state != StateStreaming {
		return
	}
	r.state = StateCancelled
	r.release()
}

// Consume drains an entire response body, feeding chunks until EOF, the
// end marker, or context cancellation. The body is closed on every exit
// path. A cancelled context is reported as ctx.Err; transport errors pass
// through unchanged.
func (r *Reassembler) Consume(ctx context.Context, body io.ReadCloser) error {
	defer func() {
		_ = body.Close()
		r.release()
	}()

	buf := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			r.Cancel()
			return ctx.Err()
		default:
		}

		n, err := body.Read(buf)
		if n > 0 {
			r.Feed(buf[:n])
		}
		if r.state != StateStreaming {
			return nil
		}
		if err == io.EOF {
			r.Flush()
			return nil
		}
		if err != nil {
			r.Cancel()
			return err
		}
	}
}

// decode appends chunk to the carry buffer and returns the longest prefix
// that ends on a complete UTF-8 sequence; the remainder carries over to
// the next chunk.
func (r *Reassembler) decode(chunk []byte) string {
	r.carry = append(r.carry, chunk...)

	valid := 0
	for i := 0; i < len(r.carry); {
		ch, size := utf8.DecodeRune(r.carry[i:])
		if ch == utf8.RuneError && size == 1 {
			if len(r.carry)-i < utf8.UTFMax {
				// Possibly an incomplete sequence; wait for more bytes.
				break
			}
			// Genuinely invalid byte, pass it through as-is.
			i++
			valid = i
			continue
		}
		i += size
		valid = i
	}

	if valid == 0 {
		return ""
	}
	out := string(r.carry[:valid])
	r.carry = r.carry[valid:]
	return out
}

// handleLine processes one newline-delimited event line. Only data lines
// carry deltas; other SSE fields (event, id, retry) and comments are
// skipped, as are malformed JSON payloads.
func (r *Reassembler) handleLine(line string) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "data:") {
		return
	}

	payload := strings.TrimSpace(strings.TrimPrefix(trimmed, "data:"))
	if payload == "" {
		return
	}

	if payload == doneMarker {
		r.finish()
		return
	}

	if !gjson.Valid(payload) {
		log.WithField("payload", payload).Debug("stream: skipping malformed delta frame")
		return
	}

	delta := extractDelta(gjson.Parse(payload))
	if delta == "" {
		return
	}

	r.accumulated.WriteString(delta)
	r.push(false)
}

// extractDelta pulls the text fragment out of a delta record. Several
// provider shapes are tolerated: OpenAI chat chunks, Anthropic text
// deltas, and bare content fields.
func extractDelta(node gjson.Result) string {
	if value := node.Get("choices.0.delta.content"); value.Exists() {
		return value.String()
	}
	if value := node.Get("delta.text"); value.Exists() {
		return value.String()
	}
	if value := node.Get("content"); value.Exists() && node.Get("type").String() != "content_block_start" {
		return value.String()
	}
	return ""
}

func (r *Reassembler) finish() {
	r.state = StateDone
	r.release()
	r.push(true)
}

// push re-segments the full accumulated text and emits a snapshot. The
// consumer always observes monotonically growing text.
func (r *Reassembler) push(done bool) {
	if r.emit == nil {
		return
	}
	text := r.transformed()
	r.emit(Update{
		Text:    text,
		Message: segment.Parse(text),
		Done:    done,
	})
}

func (r *Reassembler) transformed() string {
	text := r.accumulated.String()
	if r.Transform != nil {
		text = r.Transform(text)
	}
	return text
}

// release drops the decoder buffers. Safe to call on every exit path.
func (r *Reassembler) release() {
	r.carry = nil
	r.lineBuf = ""
}
