package classifier

import (
	"fmt"
	"strings"

	"aha_collector/internal/domain"
	"aha_collector/internal/filter"
	"aha_collector/internal/source"
)

// PromptVersion is stored on every classification so results from
// different prompt revisions can be told apart.
const PromptVersion = "v1"

const promptTextLimit = 1500

const systemPrompt = `You analyze user testimonials about AI tools to find "aha moments": breakthrough realizations that changed how someone thinks about or uses AI. You write for a Growth team. Reply with a single JSON object and nothing else.`

const promptTemplate = `Analyze this post and extract strategic insights.

POST:
Source: %s
Title: %s
Content: %s
AI Tool Mentioned: %s

Respond with a JSON object containing exactly these fields:

"layer": one of "What", "How", "Wow"
  - "What": conceptual understanding, a new mental model of what AI is or isn't
  - "How": practical discovery, a new way to use AI, a workflow or technique
  - "Wow": emotional breakthrough, their view of AI shifted

"growth_lever": the single most applicable of "Activation", "Retention", "Differentiation", "B2B"
  - "Activation": helps new users get started or reach a first success
  - "Retention": keeps users coming back and builds habits
  - "Differentiation": shows what makes one AI different from others
  - "B2B": relevant to business or team use

"realization": one punchy sentence, third person, stating what they realized

"provocation": one strategic question this raises for the Growth team

"quote": the most compelling one or two sentences from the post, lightly cleaned up

"use_case": a short category such as "Code generation", "Research", "Learning", "Workflow automation"`

// BuildPrompt renders the system and user prompt for post. The output depends only on the post.
func BuildPrompt(post domain.RawPost) (system, user string) {
	text := post.Body
	if strings.TrimSpace(text) == "" {
		text = post.Title
	}

	tool := post.AITool
	if tool == "" {
		tool = filter.GeneralTool
	}

	user = fmt.Sprintf(promptTemplate,
		post.Platform.Label(),
		post.Title,
		source.Truncate(text, promptTextLimit),
		tool,
	)
	return systemPrompt, user
}
