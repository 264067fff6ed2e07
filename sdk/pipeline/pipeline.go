// Package pipeline is the public facade over the message-processing core:
// input validation, segmentation, post-processing, output scrubbing, and
// stream reassembly. Each step is a pure function over its input; callers
// compose them however their transport requires.
package pipeline

import (
	"github.com/luminachat/msgpipe/internal/guard"
	"github.com/luminachat/msgpipe/internal/langdetect"
	"github.com/luminachat/msgpipe/internal/outfilter"
	"github.com/luminachat/msgpipe/internal/postprocess"
	"github.com/luminachat/msgpipe/internal/segment"
	"github.com/luminachat/msgpipe/internal/stream"
)

// Re-exported core types.
type (
	Segment       = segment.Segment
	ParsedMessage = segment.ParsedMessage
	Verdict       = guard.Verdict
	Result        = guard.Result
	Update        = stream.Update
	Reassembler   = stream.Reassembler
)

// Validate screens untrusted user text before it is forwarded anywhere.
func Validate(text string) Result { return guard.Check(text) }

// Classify runs only the injection battery.
func Classify(text string) Verdict { return guard.Classify(text) }

// Parse splits a message into ordered text/code segments.
func Parse(text string) ParsedMessage { return segment.Parse(text) }

// DetectLanguage guesses the language of a code snippet.
func DetectLanguage(code string) string { return langdetect.Detect(code) }

// PostProcess normalizes a complete response (fences, formulas, entities).
func PostProcess(text string) string { return postprocess.Apply(text) }

// Scrub removes identity and credential tokens from outgoing text.
func Scrub(text string) string { return outfilter.Scrub(text) }

// NewReassembler builds a stream reassembler pushing snapshots to onUpdate.
func NewReassembler(onUpdate func(Update)) *Reassembler { return stream.New(onUpdate) }
