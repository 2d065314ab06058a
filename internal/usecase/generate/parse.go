package generate

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/kailas-cloud/wfassist/internal/domain"
	"github.com/kailas-cloud/wfassist/internal/domain/value"
)

var fenceRegex = regexp.MustCompile("(?s)^```(?:json)?\\s*\\n?(.*?)\\n?```$")

const errorContextRadius = 50

// ParseOutput extracts a JSON object from model text, tolerating a surrounding
// markdown code fence. Failures are *domain.OutputParseError values.
func ParseOutput(text string) (value.Value, error) {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return value.Value{}, domain.NewOutputParseError("empty text provided")
	}
	if m := fenceRegex.FindStringSubmatch(cleaned); m != nil {
		cleaned = strings.TrimSpace(m[1])
	}

	v, err := value.ParseJSON([]byte(cleaned))
	if err != nil {
		return value.Value{}, domain.NewOutputParseError(fmt.Sprintf("JSON parsing error: %v%s", err, nearContext(cleaned, err)))
	}
	if v.Kind() != value.Object {
		return value.Value{}, domain.NewOutputParseError(fmt.Sprintf("parsed JSON is not an object (got %s)", v.Kind()))
	}
	return v, nil
}

func nearContext(text string, err error) string {
	var se *json.SyntaxError
	if !errors.As(err, &se) || se.Offset <= 0 {
		return ""
	}
	off := int(min(se.Offset, int64(len(text))))
	start := max(0, off-errorContextRadius)
	end := min(len(text), off+errorContextRadius)
	return fmt.Sprintf(" (near: ...%s...)", text[start:end])
}
