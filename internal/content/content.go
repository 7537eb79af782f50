// Package content holds the static reference material shipped with ecosim:
// conservation guides, educational resources, the quiz bank and suggested
// assistant questions. Everything is loaded from an embedded YAML document.
package content

import (
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed content.yaml
var contentYAML []byte

// NoGuideMessage is returned in place of a guide for an unknown species.
const NoGuideMessage = "No conservation data available for this species. Try selecting another one."

// AssistantTip is shown after every assistant answer.
const AssistantTip = "You can also ask about specific species, ecosystems, or conservation methods!"

// FeedbackThanks acknowledges stored feedback.
const FeedbackThanks = "Thank you for your feedback!"

var (
	// ErrUnknownQuestion is returned when a quiz reference matches no question.
	ErrUnknownQuestion = errors.New("unknown quiz question")

	// ErrUnknownOption is returned when an answer is not one of the question's options.
	ErrUnknownOption = errors.New("answer is not one of the options")
)

// Guide lists conservation strategies for one species or ecosystem.
type Guide struct {
	Name       string   `json:"name" yaml:"name"`
	Title      string   `json:"title,omitempty" yaml:"title,omitempty"`
	Strategies []string `json:"strategies" yaml:"strategies"`
}

// Heading returns the guide's display heading.
func (g Guide) Heading() string {
	title := g.Title
	if title == "" {
		title = g.Name
	}
	return "Conservation Strategies for " + title + ":"
}

// Markdown renders the guide as a bold heading followed by a bullet list.
func (g Guide) Markdown() string {
	var sb strings.Builder
	sb.WriteString("**" + g.Heading() + "**\n")
	for _, s := range g.Strategies {
		sb.WriteString("- " + s + "\n")
	}
	return sb.String()
}

// Link is one external educational resource.
type Link struct {
	Title       string `json:"title" yaml:"title"`
	URL         string `json:"url" yaml:"url"`
	Description string `json:"description" yaml:"description"`
}

// ResourceGroup is a titled set of links.
type ResourceGroup struct {
	Category string `json:"category" yaml:"category"`
	Links    []Link `json:"links" yaml:"links"`
}

// Question is one multiple-choice quiz entry.
type Question struct {
	Text    string   `json:"question" yaml:"question"`
	Options []string `json:"options" yaml:"options"`
	Answer  string   `json:"answer" yaml:"answer"`
}

// Result is the outcome of answering a quiz question.
type Result struct {
	Question string `json:"question"`
	Given    string `json:"given"`
	Correct  bool   `json:"correct"`
	Answer   string `json:"answer"`
}

// Message returns the feedback line shown to the user.
func (r Result) Message() string {
	if r.Correct {
		return "Correct!"
	}
	return "Incorrect! The correct answer is: " + r.Answer
}

// Library is the parsed content document.
type Library struct {
	Guides      []Guide         `yaml:"species"`
	Groups      []ResourceGroup `yaml:"resources"`
	Quiz        []Question      `yaml:"quiz"`
	Suggestions []string        `yaml:"suggestions"`

	byName map[string]Guide
}

// Parse decodes a content document.
func Parse(data []byte) (*Library, error) {
	var lib Library
	if err := yaml.Unmarshal(data, &lib); err != nil {
		return nil, fmt.Errorf("parsing content: %w", err)
	}
	lib.byName = make(map[string]Guide, len(lib.Guides))
	for _, g := range lib.Guides {
		lib.byName[NormalizeSpecies(g.Name)] = g
	}
	for i, q := range lib.Quiz {
		if indexOf(q.Options, q.Answer) < 0 {
			return nil, fmt.Errorf("quiz question %d: answer %q is not an option", i+1, q.Answer)
		}
	}
	return &lib, nil
}

var loadDefault = sync.OnceValues(func() (*Library, error) {
	return Parse(contentYAML)
})

// Default returns the embedded library. It panics if the embedded document
// is malformed, which is a build defect.
func Default() *Library {
	lib, err := loadDefault()
	if err != nil {
		panic(err)
	}
	return lib
}

// NormalizeSpecies title-cases free text and collapses whitespace, so
// "  sea   TURTLES " becomes "Sea Turtles".
func NormalizeSpecies(name string) string {
	return cases.Title(language.English).String(strings.Join(strings.Fields(name), " "))
}

// Species returns the names of every species with a guide, in display order.
func (l *Library) Species() []string {
	names := make([]string, len(l.Guides))
	for i, g := range l.Guides {
		names[i] = g.Name
	}
	return names
}

// Tips returns the guide for a species name in any casing.
func (l *Library) Tips(species string) (Guide, bool) {
	g, ok := l.byName[NormalizeSpecies(species)]
	return g, ok
}

// TipsText returns the guide as markdown, or NoGuideMessage when unknown.
func (l *Library) TipsText(species string) string {
	if g, ok := l.Tips(species); ok {
		return g.Markdown()
	}
	return NoGuideMessage
}

// Resources returns the educational resource groups.
func (l *Library) Resources() []ResourceGroup {
	return l.Groups
}

// Questions returns the quiz bank.
func (l *Library) Questions() []Question {
	return l.Quiz
}

// Question resolves a quiz reference: either a 1-based index or the exact
// question text (case-insensitive).
func (l *Library) Question(ref string) (Question, error) {
	ref = strings.TrimSpace(ref)
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(l.Quiz) {
			return Question{}, fmt.Errorf("%w: %d (have %d)", ErrUnknownQuestion, n, len(l.Quiz))
		}
		return l.Quiz[n-1], nil
	}
	for _, q := range l.Quiz {
		if strings.EqualFold(q.Text, ref) {
			return q, nil
		}
	}
	return Question{}, fmt.Errorf("%w: %q", ErrUnknownQuestion, ref)
}

// Check scores an answer. Answers match options case-insensitively.
func (l *Library) Check(ref, answer string) (Result, error) {
	q, err := l.Question(ref)
	if err != nil {
		return Result{}, err
	}
	i := indexOf(q.Options, answer)
	if i < 0 {
		return Result{}, fmt.Errorf("%w: %q (options: %s)", ErrUnknownOption, answer, strings.Join(q.Options, ", "))
	}
	return Result{
		Question: q.Text,
		Given:    q.Options[i],
		Correct:  strings.EqualFold(q.Options[i], q.Answer),
		Answer:   q.Answer,
	}, nil
}

func indexOf(options []string, answer string) int {
	answer = strings.TrimSpace(answer)
	for i, o := range options {
		if strings.EqualFold(o, answer) {
			return i
		}
	}
	return -1
}
