package generator

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fencedBlock = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")

// extractJSON returns the body of the first fenced code block, or the trimmed text
// when there is none.
func extractJSON(text string) string {
	if m := fencedBlock.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(text)
}

type rawCard struct {
	Content     string  `json:"content"`
	Explanation *string `json:"explanation"`
}

// parseCards decodes a completion reply into card contents. Blank explanations become nil.
func parseCards(text string) ([]CardContent, error) {
	var raw []rawCard
	if err := json.Unmarshal([]byte(extractJSON(text)), &raw); err != nil {
		return nil, &FormatError{Raw: text, Err: err}
	}

	cards := make([]CardContent, 0, len(raw))
	for _, r := range raw {
		card := CardContent{Content: r.Content}
		if r.Explanation != nil && strings.TrimSpace(*r.Explanation) != "" {
			explanation := *r.Explanation
			card.Explanation = &explanation
		}
		cards = append(cards, card)
	}
	return cards, nil
}
