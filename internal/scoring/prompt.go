package scoring

import (
	"encoding/json"

	"github.com/robalobadob/wortkunst/assets"
)

// Prompt is the provider-neutral request text.
type Prompt struct {
	System string
	User   string
}

type promptPayload struct {
	Language     string   `json:"language"`
	Words        []string `json:"words"`
	Instructions string   `json:"instructions"`
}

// NewPrompt builds the scoring prompt for words.
func NewPrompt(words []string) (Prompt, error) {
	user, err := json.Marshal(promptPayload{
		Language:     "German",
		Words:        words,
		Instructions: assets.Instructions(),
	})
	if err != nil {
		return Prompt{}, err
	}
	return Prompt{System: assets.SystemPrompt(), User: string(user)}, nil
}
