package llm

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/nvandessel/ecosim/internal/content"
	"github.com/nvandessel/ecosim/internal/params"
	"github.com/samber/lo"
)

// minOverlap is the fraction of question keywords a passage must share
// before the fallback answers from it.
const minOverlap = 0.2

// passage is one answerable chunk of built-in content.
type passage struct {
	text   string
	tokens map[string]bool
}

// FallbackClient answers questions offline from the built-in conservation
// guides and parameter descriptions, picking the passage with the highest
// keyword overlap. It never returns an error.
type FallbackClient struct {
	lib      *content.Library
	passages []passage
}

// NewFallbackClient builds a fallback over lib. A nil lib uses content.Default().
func NewFallbackClient(lib *content.Library) *FallbackClient {
	if lib == nil {
		lib = content.Default()
	}

	var passages []passage
	for _, name := range lib.Species() {
		g, _ := lib.Tips(name)
		doc := g.Name + " " + g.Title + " " + strings.Join(g.Strategies, " ")
		passages = append(passages, passage{text: g.Markdown(), tokens: tokenSet(doc)})
	}
	for _, r := range params.Bounds() {
		text := fmt.Sprintf("**%s**: %s", r.Label, r.Help)
		passages = append(passages, passage{text: text, tokens: tokenSet(r.Label + " " + r.Help + " " + r.Group)})
	}

	return &FallbackClient{lib: lib, passages: passages}
}

// Name implements Named.
func (c *FallbackClient) Name() string { return "fallback" }

// Available is always true; the fallback needs no credentials.
func (c *FallbackClient) Available() bool { return true }

// Complete answers the question embedded in prompt.
func (c *FallbackClient) Complete(ctx context.Context, prompt string) (string, error) {
	question := tokenSet(QuestionFromPrompt(prompt))
	if len(question) == 0 {
		return c.noMatch(), nil
	}

	best, bestScore := -1, 0.0
	for i, p := range c.passages {
		if s := overlap(question, p.tokens); s > bestScore {
			best, bestScore = i, s
		}
	}
	if best < 0 || bestScore < minOverlap {
		return c.noMatch(), nil
	}
	return c.passages[best].text, nil
}

func (c *FallbackClient) noMatch() string {
	var sb strings.Builder
	sb.WriteString("I don't have an offline answer for that yet. Try one of these:\n")
	for _, s := range c.lib.Suggestions {
		sb.WriteString("- " + s + "\n")
	}
	return sb.String()
}

// overlap returns the share of question tokens present in doc.
func overlap(question, doc map[string]bool) float64 {
	hits := lo.CountBy(lo.Keys(question), func(w string) bool { return doc[w] })
	return float64(hits) / float64(len(question))
}

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "what": true, "how": true,
	"does": true, "why": true, "with": true, "from": true, "that": true, "this": true,
	"about": true, "can": true, "you": true, "tell": true, "which": true, "their": true,
	"main": true, "best": true, "into": true, "its": true, "they": true, "them": true,
}

// tokenSet lowercases s, splits on non-alphanumerics, drops short and
// stop words, and strips a trailing plural "s".
func tokenSet(s string) map[string]bool {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	words = lo.FilterMap(words, func(w string, _ int) (string, bool) {
		if len(w) < 3 || stopWords[w] {
			return "", false
		}
		if len(w) > 3 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") {
			w = strings.TrimSuffix(w, "s")
		}
		return w, true
	})
	return lo.SliceToMap(words, func(w string) (string, bool) { return w, true })
}
