package validation

import (
	"github.com/kailas-cloud/wfassist/internal/domain/schema"
	"github.com/kailas-cloud/wfassist/internal/domain/value"
	"github.com/kailas-cloud/wfassist/internal/domain/verdict"
)

// Coverage returns the fraction of root's top-level required properties present
// as keys in candidate. Only presence counts; values are not inspected.
// A schema without required properties yields 1.0.
func Coverage(candidate value.Value, root *schema.Node) float64 {
	if root == nil {
		return 1.0
	}
	required := root.Required()
	if len(required) == 0 {
		return 1.0
	}
	present := 0
	for _, name := range required {
		if candidate.Has(name) {
			present++
		}
	}
	return float64(present) / float64(len(required))
}

// Check runs Validate and Coverage together.
func Check(candidate value.Value, root *schema.Node) verdict.Report {
	return verdict.Report{Result: Validate(candidate, root), Coverage: Coverage(candidate, root)}
}
