// Package langdetect guesses the programming language of a code snippet
// from syntactic fingerprints. Checks run in a fixed order and the first
// match wins; an ambiguous or unparseable snippet always resolves to the
// fallback rather than failing.
package langdetect

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// Fallback is returned when no fingerprint matches.
const Fallback = "javascript"

var (
	componentTagPattern = regexp.MustCompile(`<[A-Z][A-Za-z0-9]*(\s[^<>]*)?/?>`)
	hookCallPattern     = regexp.MustCompile(`\buse[A-Z][A-Za-z]*\s*\(`)
	propPattern         = regexp.MustCompile(`\b[a-zA-Z]+=\{|\bprops\.|\bclassName=`)

	typeAnnotationPattern = regexp.MustCompile(`:\s*(string|number|boolean|void|any|unknown|never)\b|\binterface\s+[A-Z]\w*|\btype\s+[A-Z]\w*\s*=|<\w+(\[\])?>\s*\(|\bas\s+(const|string|number)\b`)

	htmlClosingPattern = regexp.MustCompile(`(?i)</(div|span|p|a|ul|ol|li|body|html|head|h[1-6]|table|tr|td|th|form|input|button|section|nav|footer|header|main|article)>`)

	cssRulePattern   = regexp.MustCompile(`(?m)^\s*[.#]?[A-Za-z][\w-]*(\s*[,>+~]\s*[.#]?[A-Za-z][\w-]*)*\s*\{`)
	cssAtRulePattern = regexp.MustCompile(`@(media|import|keyframes|font-face)\b`)
	cssDeclPattern   = regexp.MustCompile(`[\w-]+\s*:\s*[^;{}]+;`)

	pythonPattern = regexp.MustCompile(`(?m)^\s*(def\s+\w+\s*\(|from\s+[\w.]+\s+import\s|import\s+[\w.]+$|print\s*\(|if\s+__name__\s*==)`)

	jsPattern = regexp.MustCompile(`(?m)\b(const|let|var)\s+\w+|^\s*function\s+\w*\s*\(|=>|console\.log\s*\(`)

	javaPattern = regexp.MustCompile(`\bpublic\s+(class|static|void|interface)\b|System\.out\.print`)

	sqlPattern = regexp.MustCompile(`(?im)^\s*(SELECT|INSERT\s+INTO|UPDATE|DELETE\s+FROM|CREATE\s+(TABLE|INDEX|DATABASE|VIEW)|ALTER\s+TABLE|DROP\s+(TABLE|INDEX|DATABASE))\b`)
)

// Detect returns a lowercase language tag for the snippet. The check order
// is behavior, not an implementation detail: markup idioms are tested before
// the generic script patterns they would otherwise also match.
func Detect(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return Fallback
	}

	if componentTagPattern.MatchString(trimmed) &&
		(hookCallPattern.MatchString(trimmed) || propPattern.MatchString(trimmed)) {
		if typeAnnotationPattern.MatchString(trimmed) {
			return "tsx"
		}
		return "jsx"
	}

	if htmlClosingPattern.MatchString(trimmed) {
		return "html"
	}

	if cssAtRulePattern.MatchString(trimmed) ||
		(cssRulePattern.MatchString(trimmed) && cssDeclPattern.MatchString(trimmed)) {
		return "css"
	}

	if pythonPattern.MatchString(trimmed) {
		return "python"
	}

	if jsPattern.MatchString(trimmed) {
		if typeAnnotationPattern.MatchString(trimmed) {
			return "typescript"
		}
		return "javascript"
	}

	if javaPattern.MatchString(trimmed) {
		return "java"
	}

	if sqlPattern.MatchString(trimmed) {
		return "sql"
	}

	if isStructuralJSON(trimmed) {
		return "json"
	}

	return Fallback
}

// isStructuralJSON requires a matching open/close pair plus a successful
// parse, so a stray brace does not classify a snippet as JSON.
func isStructuralJSON(code string) bool {
	first := code[0]
	last := code[len(code)-1]
	if !((first == '{' && last == '}') || (first == '[' && last == ']')) {
		return false
	}
	return gjson.Valid(code)
}
