package llm

import (
	"strings"
	"unicode/utf8"
)

// SystemPrompt frames every assistant request.
const SystemPrompt = `You are an ecosystem education assistant inside a plant, herbivore and predator population simulator.
Answer questions about ecosystems, biodiversity, species and conservation in plain language.
Keep answers short: at most a few sentences. If a question is unrelated to ecology, say so briefly.`

// questionMarker precedes the user's text in AssistantPrompt output.
const questionMarker = "Question: "

// AssistantPrompt wraps a user question for a completion request.
func AssistantPrompt(question string) string {
	var sb strings.Builder
	sb.WriteString("Ask me anything about the ecosystem, biodiversity, or species.\n\n")
	sb.WriteString(questionMarker)
	sb.WriteString(strings.TrimSpace(question))
	sb.WriteString("\n\nAnswer:")
	return sb.String()
}

// QuestionFromPrompt recovers the user question from an AssistantPrompt
// result. Any other text is returned trimmed and unchanged.
func QuestionFromPrompt(prompt string) string {
	i := strings.LastIndex(prompt, questionMarker)
	if i < 0 {
		return strings.TrimSpace(prompt)
	}
	q := prompt[i+len(questionMarker):]
	if j := strings.Index(q, "\n\nAnswer:"); j >= 0 {
		q = q[:j]
	}
	return strings.TrimSpace(q)
}

// truncate shortens s to at most n runes, appending "..." when cut.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
