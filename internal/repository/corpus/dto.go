package corpus

import (
	"fmt"

	"github.com/kailas-cloud/wfassist/internal/domain/example"
	"github.com/kailas-cloud/wfassist/internal/domain/value"
)

// exampleDTO is the on-disk shape of one corpus entry (JSON or YAML).
type exampleDTO struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Config      any    `json:"config" yaml:"config"`
}

func (d exampleDTO) toDomain() (example.Example, error) {
	cfg, err := value.FromAny(d.Config)
	if err != nil {
		return example.Example{}, fmt.Errorf("example %q config: %w", d.ID, err)
	}
	return example.New(d.ID, d.Title, d.Description, cfg)
}

var fallbackSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"id":        map[string]any{"type": "string"},
		"type":      map[string]any{"type": "string"},
		"condition": map[string]any{"type": "object"},
		"action":    map[string]any{"type": "object"},
		"priority":  map[string]any{"type": "string", "enum": []any{"low", "medium", "high"}},
	},
	"required": []any{"id", "type", "action"},
}

var fallbackExamples = []exampleDTO{
	{
		ID:          "ex-001",
		Title:       "Email on delay",
		Description: "Send email notification when task duration exceeds threshold",
		Config: map[string]any{
			"id":        "notify-delay",
			"type":      "notification",
			"condition": map[string]any{"field": "duration", "operator": ">", "value": 120},
			"action":    map[string]any{"type": "email", "recipients": []any{"team@example.com"}},
			"priority":  "high",
		},
	},
}
