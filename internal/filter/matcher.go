package filter

import (
	"errors"
	"strings"

	"golang.org/x/text/cases"
)

// DefaultKeywords are the phrases that signal an aha moment, in match priority order.
var DefaultKeywords = []string{
	"aha moment",
	"finally clicked",
	"finally understood",
	"mind blown",
	"game changer",
	"changed everything",
	"holy shit",
	"blew my mind",
	"lightbulb moment",
	"eureka",
	"finally get it",
	"now I understand",
	"changed how I",
	"never going back",
	"completely changed",
	"revelation",
	"breakthrough",
	"wow moment",
}

// DefaultTools are the AI tool mentions a post must contain.
var DefaultTools = []string{
	"claude",
	"chatgpt",
	"gpt-4",
	"gpt4",
	"gemini",
	"grok",
	"perplexity",
	"copilot",
	"cursor",
	"anthropic",
	"openai",
	"llm",
	"ai assistant",
	"ai tool",
}

type toolLabel struct {
	terms []string
	label string
}

// More specific products first.
var toolLabels = []toolLabel{
	{[]string{"claude", "anthropic"}, "Claude"},
	{[]string{"chatgpt", "gpt-4", "gpt4", "openai"}, "ChatGPT"},
	{[]string{"gemini", "bard"}, "Gemini"},
	{[]string{"grok"}, "Grok"},
	{[]string{"perplexity"}, "Perplexity"},
	{[]string{"copilot"}, "Copilot"},
	{[]string{"cursor"}, "Cursor"},
}

const GeneralTool = "General"

// Matcher decides whether a post is an aha-moment candidate.
type Matcher struct {
	keywords []string
	folded   []string
	tools    []string
}

func NewMatcher(keywords, tools []string) (*Matcher, error) {
	m := &Matcher{}
	for _, k := range keywords {
		if strings.TrimSpace(k) == "" {
			continue
		}
		m.keywords = append(m.keywords, k)
		m.folded = append(m.folded, fold(k))
	}
	if len(m.keywords) == 0 {
		return nil, errors.New("keyword set must not be empty")
	}
	for _, t := range tools {
		m.tools = append(m.tools, fold(t))
	}
	return m, nil
}

// Match returns the first keyword, in set order, contained in title+body.
// With a non-empty tool list the text must also mention one of the tools.
func (m *Matcher) Match(title, body string) (string, bool) {
	text := fold(title + " " + body)

	keyword := ""
	for i, k := range m.folded {
		if strings.Contains(text, k) {
			keyword = m.keywords[i]
			break
		}
	}
	if keyword == "" {
		return "", false
	}

	if len(m.tools) == 0 {
		return keyword, true
	}
	for _, t := range m.tools {
		if strings.Contains(text, t) {
			return keyword, true
		}
	}
	return "", false
}

// Tool returns the primary AI tool named in text.
func (m *Matcher) Tool(text string) string {
	text = fold(text)
	for _, tl := range toolLabels {
		for _, term := range tl.terms {
			if strings.Contains(text, term) {
				return tl.label
			}
		}
	}
	return GeneralTool
}

// fold returns the caseless form of s. A Caser is stateful, so each call gets its own.
func fold(s string) string {
	return cases.Fold().String(s)
}
