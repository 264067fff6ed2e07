// Package postprocess normalizes a complete (non-streaming) assistant
// response before rendering: fenced code blocks are reformatted, fenced
// blocks that are really formulas are rewritten as display math, and HTML
// entities are decoded. Apply is idempotent; streaming responses are
// rendered progressively and skip this stage.
package postprocess

import (
	"html"
	"regexp"
	"strings"
)

var (
	backtickFencePattern = regexp.MustCompile("(?s)```([^\\n`]*)\\n(.*?)```")
	tildeFencePattern    = regexp.MustCompile(`(?s)~~~([^\n~]*)\n(.*?)~~~`)

	mathMacroPattern = regexp.MustCompile(`\\(frac|sum|int|sqrt|nabla|cdot|times|partial|infty|lim|log|ln|sin|cos|tan|alpha|beta|gamma|delta|epsilon|theta|lambda|mu|pi|sigma|phi|omega|Delta|Gamma|Lambda|Omega|Sigma)\b`)

	// A short left-hand side, an equals sign, and a right-hand side built
	// only from math-expression characters. Code assignments carry keywords
	// or statement punctuation and fall outside this shape.
	equationLinePattern = regexp.MustCompile(`^\s*[A-Za-z][A-Za-z0-9_]{0,8}(\([a-zA-Z ,]+\))?\s*=\s*[-+*/^=()\s.,A-Za-z0-9\\{}_]+$`)

	codeKeywordPattern = regexp.MustCompile(`\b(const|let|var|function|def|return|import|print|console|class|public|private|if|for|while)\b`)
)

const defaultLanguageTag = "code"

// Apply runs the post-processing steps in order: fence reformatting,
// formula rescue, entity decoding. Applying it twice yields the same text
// as applying it once.
func Apply(text string) string {
	out := backtickFencePattern.ReplaceAllStringFunc(text, func(block string) string {
		return rewriteFencedBlock(backtickFencePattern, block, "```")
	})
	out = tildeFencePattern.ReplaceAllStringFunc(out, func(block string) string {
		return rewriteFencedBlock(tildeFencePattern, block, "~~~")
	})
	return html.UnescapeString(out)
}

// rewriteFencedBlock reformats one fenced block, or unwraps it into a
// display-math block when the body reads as a formula the model mistakenly
// wrapped in a code fence. Reformatted blocks keep their marker style.
func rewriteFencedBlock(pattern *regexp.Regexp, block, marker string) string {
	match := pattern.FindStringSubmatch(block)
	if match == nil {
		return block
	}
	tag := strings.TrimSpace(match[1])
	body := strings.Trim(match[2], "\n")

	if isFormula(body) {
		return "$$\n" + body + "\n$$"
	}

	if tag == "" {
		tag = defaultLanguageTag
	}
	return marker + tag + "\n" + body + "\n" + marker
}

// isFormula reports whether a fenced body is mathematics rather than code.
// A recognized math macro is decisive on its own; otherwise every nonblank
// line must read as a bare equation with no code keywords. A body lacking
// both an operator/equals shape and a macro name is ambiguous and stays a
// code block.
func isFormula(body string) bool {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return false
	}
	if mathMacroPattern.MatchString(trimmed) {
		return true
	}
	if codeKeywordPattern.MatchString(trimmed) {
		return false
	}
	if strings.ContainsAny(trimmed, ";{}") {
		return false
	}
	lines := strings.Split(trimmed, "\n")
	sawEquation := false
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !equationLinePattern.MatchString(line) {
			return false
		}
		sawEquation = true
	}
	return sawEquation
}
