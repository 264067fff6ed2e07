// Package outfilter scrubs model/vendor-identifying tokens and credential
// vocabulary from outgoing text. It is a defense-in-depth textual pass over
// content the system prompt already instructs the model not to reveal —
// best-effort, not a security boundary.
package outfilter

import (
	"regexp"
)

// DefaultPlaceholder is the neutral identity substituted for vendor and
// model names.
const DefaultPlaceholder = "the assistant"

const redactedMarker = "[redacted]"

var (
	identityPattern = regexp.MustCompile(`(?i)\b(chatgpt|gpt-4[\w.\-]*|gpt-3(\.5)?[\w.\-]*|gpt-5[\w.\-]*|openai|anthropic|claude(\s+(opus|sonnet|haiku))?|gemini|bard|copilot|llama[\s-]?\d*|mistral|mixtral|deepseek|qwen|grok)\b`)

	// Credential/token vocabulary with a trailing value is redacted whole;
	// a bare mention keeps the phrase but loses anything that looks like a
	// secret after it.
	credentialValuePattern = regexp.MustCompile(`(?i)\b(api[\s_-]?key|bearer\s+token|authorization|access[\s_-]?token|secret[\s_-]?key)\b\s*[:=]\s*\S+`)
	bearerHeaderPattern    = regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._\-]{16,}`)
	secretTokenPattern     = regexp.MustCompile(`\bsk-[A-Za-z0-9]{16,}\b`)
)

// Filter replaces identity tokens with a configured placeholder. The
// zero value uses DefaultPlaceholder.
type Filter struct {
	Placeholder string
}

// Default is the filter used by the package-level helper.
var Default = &Filter{}

// Scrub rewrites text so that backend/vendor/model identifiers read as the
// neutral placeholder and credential-bearing fragments are redacted.
func (f *Filter) Scrub(text string) string {
	if text == "" {
		return text
	}
	out := identityPattern.ReplaceAllString(text, f.placeholder())
	// Bearer values go first: the credential pass would otherwise consume
	// the word "Bearer" as the value and leave the token itself behind.
	out = bearerHeaderPattern.ReplaceAllString(out, redactedMarker)
	out = secretTokenPattern.ReplaceAllString(out, redactedMarker)
	out = credentialValuePattern.ReplaceAllString(out, redactedMarker)
	return out
}

// Scrub applies the default filter.
func Scrub(text string) string { return Default.Scrub(text) }

func (f *Filter) placeholder() string {
	if f.Placeholder != "" {
		return f.Placeholder
	}
	return DefaultPlaceholder
}
