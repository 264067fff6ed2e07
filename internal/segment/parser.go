package segment

import (
	"strings"

	"github.com/luminachat/msgpipe/internal/langdetect"
)

// Parse splits content into ordered text/code segments. Fenced blocks are
// extracted first in document order; when no fence matched anywhere and the
// message reads as coding-related, the remainder is scanned for inline code
// runs. The result always carries at least one segment: empty or
// all-whitespace input yields a single empty text segment.
func Parse(content string) ParsedMessage {
	codingRelated := IsCodingRelated(content)

	var segments []Segment
	fenced := scanFences(content)

	if len(fenced.blocks) == 0 {
		if codingRelated {
			segments = scanInlineRuns(content)
		} else {
			segments = []Segment{Text(normalizeText(content))}
		}
	} else {
		last := 0
		for _, block := range fenced.blocks {
			if lead := content[last:block.start]; strings.TrimSpace(lead) != "" {
				segments = append(segments, Text(normalizeText(lead)))
			}
			lang := block.lang
			if lang == "" {
				lang = langdetect.Detect(block.body)
			}
			segments = append(segments, Code(block.body, strings.ToLower(lang)))
			last = block.end
		}
		if tail := content[last:]; strings.TrimSpace(tail) != "" {
			segments = append(segments, Text(normalizeText(tail)))
		}
	}

	if len(segments) == 0 {
		segments = []Segment{Text(normalizeText(content))}
	}

	hasCode := false
	for _, seg := range segments {
		if seg.Kind == KindCode {
			hasCode = true
			break
		}
	}

	return ParsedMessage{
		Segments:      segments,
		HasCode:       hasCode,
		CodingRelated: codingRelated,
	}
}

type fencedBlock struct {
	start int // byte offset of the opening fence line
	end   int // byte offset just past the closing fence line
	lang  string
	body  string
}

type fenceScan struct {
	blocks []fencedBlock
}

// scanFences walks the content line by line with InText/InFence states.
// An opening marker with no matching close is not a block; its text falls
// through to remainder handling unchanged.
func scanFences(content string) fenceScan {
	var scan fenceScan

	offset := 0
	inFence := false
	var open fencedBlock
	var openMarker byte
	var body strings.Builder

	for offset <= len(content) {
		lineEnd := strings.IndexByte(content[offset:], '\n')
		var line string
		next := len(content) + 1
		if lineEnd >= 0 {
			line = content[offset : offset+lineEnd]
			next = offset + lineEnd + 1
		} else {
			line = content[offset:]
		}

		if !inFence {
			if marker, lang, ok := fenceOpen(line); ok {
				inFence = true
				openMarker = marker
				open = fencedBlock{start: offset, lang: lang}
				body.Reset()
			}
		} else if fenceClose(line, openMarker) {
			open.body = strings.Trim(body.String(), "\n")
			open.end = next
			if open.end > len(content) {
				open.end = len(content)
			}
			scan.blocks = append(scan.blocks, open)
			inFence = false
		} else {
			body.WriteString(line)
			body.WriteByte('\n')
		}

		if lineEnd < 0 {
			break
		}
		offset = next
	}

	// Unterminated fence: drop it, the content stays text.
	return scan
}

// fenceOpen reports whether the line opens a fenced block, returning the
// marker character and the declared language tag, if any.
func fenceOpen(line string) (byte, string, bool) {
	trimmed := strings.TrimLeft(line, " \t")
	var marker byte
	switch {
	case strings.HasPrefix(trimmed, "```"):
		marker = '`'
	case strings.HasPrefix(trimmed, "~~~"):
		marker = '~'
	default:
		return 0, "", false
	}
	rest := strings.TrimLeft(trimmed, string(marker))
	tag := strings.TrimSpace(rest)
	if strings.ContainsAny(tag, "`~") {
		// Inline code span such as ```foo``` on one line, not a fence.
		return 0, "", false
	}
	if idx := strings.IndexAny(tag, " \t"); idx >= 0 {
		tag = tag[:idx]
	}
	return marker, strings.ToLower(tag), true
}

// fenceClose reports whether the line closes a fence opened with marker.
func fenceClose(line string, marker byte) bool {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) < 3 {
		return false
	}
	for i := 0; i < len(trimmed); i++ {
		if trimmed[i] != marker {
			return false
		}
	}
	return true
}
