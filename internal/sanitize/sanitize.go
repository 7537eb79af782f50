// Package sanitize cleans user-supplied text before it reaches a language
// model prompt, the feedback table, or a scenario key. It strips control
// characters, markup tags and code fences while keeping the readable text.
package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MaxQuestionLength is the maximum length, in runes, of an assistant question.
	MaxQuestionLength = 1000

	// MaxFeedbackLength is the maximum length, in runes, of a feedback message.
	MaxFeedbackLength = 2000

	// MaxScenarioNameLength is the maximum length of a scenario name.
	MaxScenarioNameLength = 64
)

var (
	// reXMLTag matches XML/HTML tags including attributes, self-closing tags
	// and processing instructions like <?xml ...?>.
	reXMLTag = regexp.MustCompile(`<[/?!]?[a-zA-Z][a-zA-Z0-9]*(?:\s+[^>]*)?/?>|<\?[^?]*\?>`)

	reMarkdownHeading   = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	reHorizontalRule    = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)
	reTripleBacktick    = regexp.MustCompile("```+")
	reExcessiveNewlines = regexp.MustCompile(`\n{3,}`)
	reWhitespace        = regexp.MustCompile(`\s+`)
	reRepeatedHyphens   = regexp.MustCompile(`-{2,}`)
	reRepeatedUnders    = regexp.MustCompile(`_{2,}`)
)

// Question prepares an assistant question for prompting. The result is a
// single line: control characters and tags are removed, whitespace runs
// collapse to one space, and the text is cut to MaxQuestionLength runes.
func Question(input string) string {
	if input == "" {
		return ""
	}

	s := stripControlChars(input)
	s = reXMLTag.ReplaceAllString(s, "")
	s = reTripleBacktick.ReplaceAllString(s, "`")
	s = reWhitespace.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	return truncate(s, MaxQuestionLength)
}

// Feedback prepares a free-text feedback message for storage.
//
// The pipeline runs in this order:
//  1. Strip null bytes and ASCII control characters (except \n, \t)
//  2. Strip XML/HTML tags
//  3. Replace markdown headings with list markers
//  4. Remove markdown horizontal rules
//  5. Collapse triple backticks to single backtick
//  6. Collapse excessive newlines (3+ -> 2)
//  7. Trim leading/trailing whitespace
//  8. Truncate to MaxFeedbackLength runes
func Feedback(input string) string {
	if input == "" {
		return ""
	}

	s := stripControlChars(input)
	s = reXMLTag.ReplaceAllString(s, "")
	s = reMarkdownHeading.ReplaceAllString(s, "- ")
	s = reHorizontalRule.ReplaceAllString(s, "")
	s = reTripleBacktick.ReplaceAllString(s, "`")
	s = reExcessiveNewlines.ReplaceAllString(s, "\n\n")
	s = strings.TrimSpace(s)

	return truncate(s, MaxFeedbackLength)
}

// ScenarioName turns free text into a scenario key: lowercase
// [a-z0-9-_], spaces become hyphens, repeats collapse, and leading or
// trailing separators are trimmed.
func ScenarioName(input string) string {
	if input == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range strings.ToLower(strings.TrimSpace(input)) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '\t':
			b.WriteRune('-')
		}
	}
	s := b.String()

	s = reRepeatedHyphens.ReplaceAllString(s, "-")
	s = reRepeatedUnders.ReplaceAllString(s, "_")
	s = strings.Trim(s, "-_")

	if len(s) > MaxScenarioNameLength {
		s = strings.TrimRight(s[:MaxScenarioNameLength], "-_")
	}

	return s
}

// stripControlChars removes ASCII control characters (0x00-0x1F, 0x7F)
// except newline and tab.
func stripControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r < 0x20 && r != '\n' && r != '\t') || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
