package generate

import (
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/wfassist/internal/domain"
)

func TestParseOutput(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantID  string
		wantErr string
	}{
		{"plain", `{"id": "wf-001", "type": "notification"}`, "wf-001", ""},
		{"fenced json", "```json\n{\n  \"id\": \"wf-002\"\n}\n```", "wf-002", ""},
		{"fenced bare", "```\n{\"id\":\"wf-3\"}\n```", "wf-3", ""},
		{"surrounding whitespace", "\n\t {\"id\":\"wf-4\"}  \n", "wf-4", ""},
		{"empty", "   ", "", "empty text provided"},
		{"array", `[1,2]`, "", "not an object (got array)"},
		{"broken", `{"id": "wf-003", "type": "alert", missing_quote}`, "", "JSON parsing error"},
		{"trailing prose", `{"id":"x"} hope this helps`, "", "JSON parsing error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ParseOutput(tt.in)
			if tt.wantErr != "" {
				if !errors.Is(err, domain.ErrUnparseableOutput) {
					t.Fatalf("expected ErrUnparseableOutput, got %v", err)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("error %q should contain %q", err.Error(), tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			id, _ := v.Field("id")
			if s, _ := id.AsString(); s != tt.wantID {
				t.Errorf("id = %q, want %q", s, tt.wantID)
			}
		})
	}
}

func TestParseOutput_ContextNearError(t *testing.T) {
	_, err := ParseOutput(`{"id": "wf-003", "type": "alert", missing_quote}`)
	if !strings.Contains(err.Error(), "near: ...") {
		t.Errorf("expected context snippet, got %q", err.Error())
	}
}
