package classifier

import (
	"encoding/json"
	"strings"

	"aha_collector/internal/domain"
)

// Verdict is the outcome of checking one generation response.
type Verdict struct {
	Accepted    bool
	Reason      string
	Layer       domain.Layer
	GrowthLever domain.GrowthLever
	Realization string
	Provocation string
	Quote       string
	UseCase     string
}

var (
	requiredFields = []string{"layer", "growth_lever", "realization", "provocation"}
	textFields     = []string{"realization", "provocation"}
)

// Evaluate applies the acceptance policy to a raw response. Checks run in a
// fixed order and the first failure becomes the rejection reason: parse,
// presence of the four taxonomy fields, enum membership, non-empty text.
func Evaluate(response string) Verdict {
	var fields map[string]any
	if err := json.Unmarshal([]byte(stripFences(response)), &fields); err != nil || fields == nil {
		return reject(domain.ReasonMalformedResponse)
	}

	for _, name := range requiredFields {
		if v, ok := fields[name]; !ok || v == nil {
			return reject(domain.FieldReason(domain.ReasonMissingField, name))
		}
	}

	rawLayer, _ := fields["layer"].(string)
	layer, ok := domain.ParseLayer(rawLayer)
	if !ok {
		return reject(domain.FieldReason(domain.ReasonInvalidEnum, "layer"))
	}

	rawLever, _ := fields["growth_lever"].(string)
	lever, ok := domain.ParseGrowthLever(rawLever)
	if !ok {
		return reject(domain.FieldReason(domain.ReasonInvalidEnum, "growth_lever"))
	}

	texts := make(map[string]string, len(textFields))
	for _, name := range textFields {
		s, _ := fields[name].(string)
		s = strings.TrimSpace(s)
		if s == "" {
			return reject(domain.FieldReason(domain.ReasonEmptyText, name))
		}
		texts[name] = s
	}

	quote, _ := fields["quote"].(string)
	useCase, _ := fields["use_case"].(string)

	return Verdict{
		Accepted:    true,
		Layer:       layer,
		GrowthLever: lever,
		Realization: texts["realization"],
		Provocation: texts["provocation"],
		Quote:       strings.TrimSpace(quote),
		UseCase:     strings.TrimSpace(useCase),
	}
}

func reject(reason string) Verdict {
	return Verdict{Reason: reason}
}

// stripFences unwraps a response wrapped in a markdown code block.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	start := strings.Index(s, "```")
	if start < 0 {
		return s
	}

	body := s[start+3:]
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	body = strings.TrimPrefix(body, "json")
	body = strings.TrimPrefix(body, "JSON")
	return strings.TrimSpace(body)
}
