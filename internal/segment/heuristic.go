package segment

import (
	"regexp"
	"strings"
)

// Whole-message coding-relatedness classification. Independent of whether
// the message actually contains code; used by callers for routing and
// prompting decisions.

var codingKeywords = []string{
	"code", "coding", "program", "programming", "function", "variable",
	"algorithm", "compile", "compiler", "debug", "debugging", "script",
	"method", "array", "loop", "syntax", "refactor", "implement",
	"api", "endpoint", "database", "query", "sql", "regex",
	"javascript", "typescript", "python", "java", "golang", "rust",
	"react", "component", "library", "framework", "package", "module",
	"repository", "commit", "branch", "merge", "deploy", "docker",
	"frontend", "backend", "server", "runtime", "stack trace", "exception",
	"null pointer", "segfault", "unit test",
}

var (
	structuralTokenPattern = regexp.MustCompile(`=>|==|!=|&&|\|\||\+\+|--|::|\(\)|\[\]|\{\}|</\w|/>|;\s*$`)
	codingQuestionPattern  = regexp.MustCompile(`(?i)\bhow\s+(do|can|would|should)\s+(i|you|we)\s+(code|build|implement|write|create|program|debug|fix)\b`)
)

// IsCodingRelated classifies the whole message with a keyword list, a
// structural-token pattern, and explicit how-do-I question shapes.
func IsCodingRelated(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, keyword := range codingKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	if structuralTokenPattern.MatchString(text) {
		return true
	}
	return codingQuestionPattern.MatchString(text)
}
