package knowledge

import (
	"fmt"
	"strings"

	"docchat/internal/domain"
)

const instructions = `You are a helpful assistant answering questions about documents the user added to a knowledge base.
Use the context passages below to answer. If they do not contain the answer, say that you don't know instead of making one up.
Be concise and mention the source of the information when it helps.`

// SystemPrompt renders the retrieved passages into the system message.
func SystemPrompt(results []domain.SearchResult) string {
	var b strings.Builder
	b.WriteString(instructions)
	if len(results) == 0 {
		b.WriteString("\n\nNo context passages are available.")
		return b.String()
	}
	b.WriteString("\n\nContext:")
	for i, r := range results {
		fmt.Fprintf(&b, "\n\n[%d] (%s)\n%s", i+1, r.Chunk.Source, strings.TrimSpace(r.Chunk.Text))
	}
	return b.String()
}
