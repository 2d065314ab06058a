package check

import "github.com/kailas-cloud/wfassist/internal/domain/schema"

// SchemaLoader supplies the output schema.
type SchemaLoader interface {
	LoadSchema() (*schema.Node, error)
}
