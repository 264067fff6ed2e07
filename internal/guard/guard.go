// Package guard screens untrusted user text for prompt-injection patterns
// before it is forwarded to a completion provider. Detection is a pure
// classification: nothing is thrown, the caller decides whether to block
// and which canned response to substitute.
package guard

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Category labels the kind of injection detected.
type Category string

const (
	CategoryNone Category = "none"
	// CategorySystemPrompt marks system-prompt-extraction attempts. It has
	// priority over every other category because it drives a distinct
	// user-facing response.
	CategorySystemPrompt Category = "system_prompt"
	CategoryGeneral      Category = "general"
)

// Reason explains why a message was rejected.
type Reason string

const (
	ReasonNone      Reason = ""
	ReasonTooLong   Reason = "message_too_long"
	ReasonInjection Reason = "injection_detected"
)

// Verdict is the pure classification outcome for one input text.
type Verdict struct {
	Detected bool
	Category Category
}

// Result is the full validation outcome consumed by the caller.
type Result struct {
	Valid     bool
	Sanitized string
	Reason    Reason
	Category  Category
}

const (
	// DefaultMaxMessageLength is the hard cap in characters, not bytes;
	// longer messages are rejected regardless of content.
	DefaultMaxMessageLength = 10000
	// DefaultDensityThreshold is the structural-character budget. More than
	// this many of <>{}[]\| in one message fires independent of keywords.
	DefaultDensityThreshold = 10
)

// Pattern tables are process-wide and immutable after init. Order within
// each table is not significant; order across tables is (system-prompt
// extraction is always checked first).
var (
	systemPromptPatterns = compileAll(
		`(?i)\b(show|reveal|print|display|repeat|output|tell)\b.{0,40}\b(system|initial|original|hidden)\s*(prompt|instructions?|message)`,
		`(?i)\byour\s+(system\s+)?prompt\b`,
		`(?i)\bwhat\s+(were|are)\s+you(r)?\s+(told|instructed|instructions)`,
		`(?i)\brepeat\s+(the\s+)?(text|everything|words)\s+above\b`,
		`(?i)\bbegin(ning)?\s+of\s+(your|the)\s+(conversation|context|prompt)\b`,
	)

	generalPatterns = compileAll(
		// Credential / key extraction.
		`(?i)\b(api|secret|private|access)[\s_-]?(key|token)s?\b.{0,30}\b(show|give|tell|reveal|what|print)`,
		`(?i)\b(show|give|tell|reveal|print|leak)\b.{0,30}\b(api|secret|private|access)[\s_-]?(key|token)s?\b`,
		`(?i)\bcredentials?\b.{0,20}\b(show|reveal|dump|list)\b`,
		// Model identity probing.
		`(?i)\bwhat\s+(llm|language\s+model|ai\s+model|model)\s+(are|is)\s+(you|this)\b`,
		`(?i)\bwhich\s+(llm|model|provider|vendor)\b.{0,20}\b(are\s+you|powers?|runs?|behind)\b`,
		`(?i)\bare\s+you\s+(gpt|claude|gemini|llama|mistral|deepseek)`,
		// Backend / config probing.
		`(?i)\b(backend|infrastructure|server|deployment)\s+(config|configuration|details?|setup)\b`,
		`(?i)\benvironment\s+variables?\b`,
		`(?i)\b(dump|show|list)\b.{0,20}\bconfig(uration)?\b`,
		// Jailbreak phrasing and role overrides.
		`(?i)\bignore\s+(all\s+|any\s+)?(previous|prior|above|earlier)\s+(instructions?|prompts?|messages?|rules?)\b`,
		`(?i)\bdisregard\s+(your|all|the)\s+(instructions?|rules?|guidelines?)\b`,
		`(?i)\byou\s+are\s+no\s+longer\b`,
		`(?i)\b(pretend|act|roleplay)\s+(to\s+be|as)\s+(a|an|the)?\s*\w+\s+(without|with\s+no)\s+(restrictions?|limits?|rules?)\b`,
		`(?i)\bdeveloper\s+mode\b`,
		`(?i)\bjailbreak\b`,
		`(?i)\bnew\s+(system\s+)?instructions?\s*:`,
		// Encoding-obfuscation attempts.
		`(?i)\b(decode|encode|translate)\b.{0,20}\b(base64|base32|hex|rot13|binary|morse)\b`,
		`(?i)\b(base64|rot13)\b.{0,30}\b(instructions?|prompt|message)\b`,
		`(?i)\bunicode\s+(escape|obfuscat)`,
	)

	densityChars = "<>{}[]\\|"
)

// Guard validates user input against the pattern battery with configurable
// limits. The zero-value limits fall back to the package defaults.
type Guard struct {
	MaxMessageLength int
	DensityThreshold int
}

// Default is the guard used by the package-level helpers.
var Default = &Guard{}

// Classify runs the injection battery only. System-prompt extraction is
// checked before every other pattern: a text matching both classifies as
// system_prompt.
func (g *Guard) Classify(text string) Verdict {
	for _, pattern := range systemPromptPatterns {
		if pattern.MatchString(text) {
			return Verdict{Detected: true, Category: CategorySystemPrompt}
		}
	}
	for _, pattern := range generalPatterns {
		if pattern.MatchString(text) {
			return Verdict{Detected: true, Category: CategoryGeneral}
		}
	}
	if countAny(text, densityChars) > g.densityThreshold() {
		return Verdict{Detected: true, Category: CategoryGeneral}
	}
	return Verdict{Category: CategoryNone}
}

// Check validates the text end to end: length cap, then the injection
// battery. Failure is a normal outcome, not an error.
func (g *Guard) Check(text string) Result {
	sanitized := sanitize(text)

	if utf8.RuneCountInString(text) > g.maxMessageLength() {
		return Result{Sanitized: sanitized, Reason: ReasonTooLong, Category: CategoryNone}
	}

	verdict := g.Classify(text)
	if verdict.Detected {
		return Result{Sanitized: sanitized, Reason: ReasonInjection, Category: verdict.Category}
	}

	return Result{Valid: true, Sanitized: sanitized, Category: CategoryNone}
}

// Classify runs the default guard's injection battery.
func Classify(text string) Verdict { return Default.Classify(text) }

// Check validates text with the default guard.
func Check(text string) Result { return Default.Check(text) }

func (g *Guard) maxMessageLength() int {
	if g.MaxMessageLength > 0 {
		return g.MaxMessageLength
	}
	return DefaultMaxMessageLength
}

func (g *Guard) densityThreshold() int {
	if g.DensityThreshold > 0 {
		return g.DensityThreshold
	}
	return DefaultDensityThreshold
}

// sanitize strips control characters and trims the text. It does not alter
// classification; the sanitized form is what callers forward onward.
func sanitize(text string) string {
	var builder strings.Builder
	builder.Grow(len(text))
	for _, r := range text {
		if r == '\n' || r == '\t' {
			builder.WriteRune(r)
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		builder.WriteRune(r)
	}
	return strings.TrimSpace(builder.String())
}

func countAny(text, chars string) int {
	count := 0
	for _, r := range text {
		if strings.ContainsRune(chars, r) {
			count++
		}
	}
	return count
}

func compileAll(exprs ...string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		patterns = append(patterns, regexp.MustCompile(expr))
	}
	return patterns
}
