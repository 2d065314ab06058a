package wfassist

// Example is one reference workflow in the corpus.
type Example struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Config      map[string]any `json:"config"`
}

// Match is a ranked search hit. Score is cosine similarity rounded to 4 decimals.
type Match struct {
	Example Example
	Score   float64
}

// Violation is one schema violation.
type Violation struct {
	// Path is the dotted location, e.g. "action.recipients[0]", or "(root)".
	Path string
	// Pointer is the RFC 6901 JSON pointer of the same location.
	Pointer string
	Message string
}

// Verdict is the outcome of schema validation.
type Verdict struct {
	Valid      bool
	Errors     []string // "path: message", in validation order
	Violations []Violation
}

// Report is a verdict plus the required-field coverage score.
type Report struct {
	Verdict
	Coverage float64
}
