package segment

import (
	"regexp"
	"strings"

	"github.com/luminachat/msgpipe/internal/langdetect"
)

// Inline code-run detection. Runs only when no fenced block matched anywhere
// in the message and the message reads as coding-related. The line heuristic
// is deliberately approximate: prose with stray punctuation can classify as
// code, matching the behavior downstream consumers already rely on.

var (
	codeKeywordPattern = regexp.MustCompile(`^\s*(if|else|for|while|switch|return|func|def|class|import|from|const|let|var|function|public|private|static|try|catch|finally|async|await|print|console\.)\b`)
	assignmentPattern  = regexp.MustCompile(`^\s*[A-Za-z_$][\w$.\[\]]*\s*(=|:=|\+=|-=|\*=|/=)\s*\S`)
	declarationPattern = regexp.MustCompile(`^\s*(const|let|var)\s+[A-Za-z_$]`)
	callPattern        = regexp.MustCompile(`^\s*[A-Za-z_$][\w$.]*\s*\([^)]*\)\s*[;{]?\s*$`)

	latexMacroPattern = regexp.MustCompile(`\\[a-zA-Z]{2,}`)
)

const inlineRunMinChars = 15

// scanInlineRuns walks the content line by line with InText/InInlineCodeRun
// states and returns the resulting segments in document order.
func scanInlineRuns(content string) []Segment {
	lines := strings.Split(content, "\n")

	type run struct {
		start, end int // line index range, end exclusive
	}
	var runs []run

	inRun := false
	runStart := 0
	lastCode := -1

	flush := func() {
		if !inRun || lastCode < runStart {
			inRun = false
			return
		}
		runs = append(runs, run{start: runStart, end: lastCode + 1})
		inRun = false
	}

	for i, line := range lines {
		switch {
		case looksLikeLaTeX(line):
			// Formula lines never join a code run.
			flush()
		case looksLikeCode(line):
			if !inRun {
				inRun = true
				runStart = i
			}
			lastCode = i
		case inRun && (strings.TrimSpace(line) == "" || continuesRun(line)):
			// Blank and continuation-like lines keep the run open but do
			// not extend its committed end.
		default:
			flush()
		}
	}
	flush()

	var segments []Segment
	last := 0
	for _, r := range runs {
		body := strings.Join(lines[r.start:r.end], "\n")
		if !qualifiesAsRun(body) {
			continue
		}
		if lead := strings.Join(lines[last:r.start], "\n"); strings.TrimSpace(lead) != "" {
			segments = append(segments, Text(normalizeText(lead)))
		}
		segments = append(segments, Code(body, langdetect.Detect(body)))
		last = r.end
	}
	if tail := strings.Join(lines[last:], "\n"); strings.TrimSpace(tail) != "" || len(segments) == 0 {
		segments = append(segments, Text(normalizeText(tail)))
	}
	return segments
}

// qualifiesAsRun keeps only runs spanning more than one line or longer than
// the minimum character width, so short prose fragments stay text.
func qualifiesAsRun(body string) bool {
	if strings.Contains(strings.TrimSpace(body), "\n") {
		return true
	}
	return len(strings.TrimSpace(body)) > inlineRunMinChars
}

// looksLikeCode reports whether a single line reads as code: control-flow
// keywords, assignment/declaration shapes, call expressions, or a heavy
// balanced-bracket profile.
func looksLikeCode(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || looksLikeLaTeX(line) {
		return false
	}
	if codeKeywordPattern.MatchString(line) {
		return true
	}
	if assignmentPattern.MatchString(line) || declarationPattern.MatchString(line) {
		return true
	}
	if callPattern.MatchString(line) {
		return true
	}
	return bracketDensity(trimmed) >= 3 && balancedBrackets(trimmed)
}

// continuesRun reports whether a non-code line plausibly belongs to the
// surrounding run: indented continuations and closing brackets.
func continuesRun(line string) bool {
	if line == "" {
		return false
	}
	if line[0] == ' ' || line[0] == '\t' {
		return true
	}
	trimmed := strings.TrimSpace(line)
	return trimmed == "}" || trimmed == ")" || trimmed == "]" ||
		strings.HasPrefix(trimmed, "})") || strings.HasPrefix(trimmed, "};")
}

// looksLikeLaTeX reports whether the line carries math markup. Presence of
// display/inline math delimiters or macro names suppresses code-run
// continuation so formulas are never misclassified as code.
func looksLikeLaTeX(line string) bool {
	if strings.Contains(line, `\[`) || strings.Contains(line, `\(`) || strings.Contains(line, "$$") {
		return true
	}
	return latexMacroPattern.MatchString(line)
}

func bracketDensity(line string) int {
	count := 0
	for _, r := range line {
		switch r {
		case '{', '}', '(', ')', '[', ']', ';':
			count++
		}
	}
	return count
}

func balancedBrackets(line string) bool {
	pairs := [...][2]rune{{'{', '}'}, {'(', ')'}, {'[', ']'}}
	for _, pair := range pairs {
		if strings.Count(line, string(pair[0])) != strings.Count(line, string(pair[1])) {
			return false
		}
	}
	return true
}
