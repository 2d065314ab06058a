// Package prompt assembles few-shot generation prompts.
package prompt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/wfassist/internal/domain/schema"
	"github.com/kailas-cloud/wfassist/internal/index/tfidf"
)

const systemInstruction = "You are an assistant that returns a single JSON object which must strictly " +
	"conform to the provided JSON schema. Do not return any text explanation or commentary."

const finalInstructions = "Instructions:\n" +
	"- Return only a single JSON object that conforms to the schema above.\n" +
	"- Return valid JSON only.\n" +
	"- Do not wrap the JSON in code fences.\n" +
	"- Do not include any explanatory text before or after the JSON.\n" +
	"- If you cannot comply, return an empty JSON object {}."

const separatorWidth = 80

// Build renders the prompt: instruction, schema, ranked examples, user request.
func Build(query string, matches []tfidf.Match, s *schema.Node) string {
	var b strings.Builder

	b.WriteString(systemInstruction)
	b.WriteString("\n\n")

	b.WriteString("JSON Schema:\n")
	if s != nil {
		b.WriteString(s.Raw().Pretty())
		b.WriteString("\n")
		if req := s.Required(); len(req) > 0 {
			fmt.Fprintf(&b, "\nRequired fields: %s\n", strings.Join(req, ", "))
		}
	} else {
		b.WriteString("{}\n")
	}
	b.WriteString("\n")

	b.WriteString("Few-shot Examples:\n")
	b.WriteString(strings.Repeat("=", separatorWidth))
	b.WriteString("\n")
	b.WriteString(Examples(matches))
	b.WriteString("\n")

	fmt.Fprintf(&b, "User Request:\n%s\n\n", query)

	b.WriteString("\n")
	b.WriteString(finalInstructions)
	b.WriteString("\n")

	return b.String()
}

// Examples renders ranked matches as numbered few-shot blocks.
func Examples(matches []tfidf.Match) string {
	if len(matches) == 0 {
		return "No examples available.\n"
	}
	blocks := make([]string, len(matches))
	for i, m := range matches {
		desc := m.Example.Description()
		if desc == "" {
			desc = "No description"
		}
		blocks[i] = fmt.Sprintf("Example %d (ID: %s, Relevance: %s):\nDescription: %s\nConfig:\n%s\n",
			i+1, m.Example.ID(), strconv.FormatFloat(m.Score, 'f', -1, 64), desc, m.Example.Config().Pretty())
	}
	return strings.Join(blocks, "\n")
}
