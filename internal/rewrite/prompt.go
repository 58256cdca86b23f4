package rewrite

import (
	"fmt"

	"github.com/tonetuner/tonetuner/internal/llm/openai"
)

const systemPrompt = `You are a professional editor and copywriter. Rewrite the given text in this style: %s.
Requirements:
- Keep the meaning and make the text natural and easy to read.
- Add light touches of emotion and expressiveness that fit the style.
- If the text is short (1-2 phrases), make it a little livelier without over-decorating it.
- Reply with the rewritten text only, in the same language as the original.`

// BuildMessages returns the system + user message pair for a rewrite.
func BuildMessages(text, toneLabel string) []openai.Message {
	return []openai.Message{
		{Role: "system", Content: fmt.Sprintf(systemPrompt, toneLabel)},
		{Role: "user", Content: "Text to rewrite: " + text},
	}
}
