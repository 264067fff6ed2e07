// Package segment splits assistant messages into an ordered sequence of
// typed text/code segments. The scanner is a best-effort, line-oriented
// state machine tuned for LLM-style output (fenced code blocks, inline
// LaTeX, headers); malformed input degrades to plain text instead of
// failing.
package segment

import (
	"encoding/json"
	"fmt"
)

// Kind identifies the type of a segment.
type Kind int

const (
	// KindText is prose with inline formatting, entity-decoded.
	KindText Kind = iota
	// KindCode is raw code with a lowercase language identifier.
	KindCode
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindCode:
		return "code"
	default:
		return "text"
	}
}

// MarshalJSON encodes the kind as its wire name.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes a wire name back into a Kind.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "text":
		*k = KindText
	case "code":
		*k = KindCode
	default:
		return fmt.Errorf("segment: unknown kind %q", name)
	}
	return nil
}

// Segment is one ordered unit of a parsed message.
type Segment struct {
	Kind     Kind   `json:"kind"`
	Content  string `json:"content"`
	Language string `json:"language,omitempty"`
}

// Text builds a text segment.
func Text(content string) Segment {
	return Segment{Kind: KindText, Content: content}
}

// Code builds a code segment.
func Code(content, language string) Segment {
	return Segment{Kind: KindCode, Content: content, Language: language}
}

// ParsedMessage is the ordered segment view of one assistant message.
// Segments cover the source message in document order; a message with no
// detected code is a single text segment.
type ParsedMessage struct {
	Segments      []Segment `json:"segments"`
	HasCode       bool      `json:"has_code"`
	CodingRelated bool      `json:"coding_related"`
}
