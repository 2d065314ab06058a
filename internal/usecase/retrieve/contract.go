package retrieve

import (
	"github.com/kailas-cloud/wfassist/internal/domain/example"
	"github.com/kailas-cloud/wfassist/internal/index"
)

// CorpusLoader supplies the examples to index.
type CorpusLoader interface {
	LoadExamples() ([]example.Example, error)
}

// Publisher builds and publishes index snapshots.
type Publisher interface {
	Current() (*index.Snapshot, error)
	Rebuild(examples []example.Example) (*index.Snapshot, error)
}
