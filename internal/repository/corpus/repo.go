// Package corpus loads the example corpus and the output schema from disk.
package corpus

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/wfassist/internal/domain"
	"github.com/kailas-cloud/wfassist/internal/domain/example"
	"github.com/kailas-cloud/wfassist/internal/domain/schema"
	"github.com/kailas-cloud/wfassist/internal/domain/value"
)

// Repo reads corpus files. Files are re-read on every call so a reload picks up edits.
type Repo struct {
	examplesPath string
	schemaPath   string
	fallback     bool
	logger       *zap.Logger
}

// New creates a file-backed corpus repository. With fallback set, missing files
// are replaced by the built-in corpus and schema.
func New(examplesPath, schemaPath string, fallback bool, logger *zap.Logger) *Repo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repo{examplesPath: examplesPath, schemaPath: schemaPath, fallback: fallback, logger: logger}
}

// LoadExamples reads the corpus: a JSON array, or a YAML list for .yaml/.yml files.
func (r *Repo) LoadExamples() ([]example.Example, error) {
	data, err := os.ReadFile(filepath.Clean(r.examplesPath))
	if err != nil {
		if r.fallback && errors.Is(err, fs.ErrNotExist) {
			r.logger.Warn("examples file not found, using built-in corpus", zap.String("path", r.examplesPath))
			return FallbackExamples(), nil
		}
		return nil, fmt.Errorf("read examples %s: %w", r.examplesPath, err)
	}
	exs, err := DecodeExamples(data, isYAML(r.examplesPath))
	if err != nil {
		return nil, fmt.Errorf("decode examples %s: %w", r.examplesPath, err)
	}
	return exs, nil
}

// LoadSchema reads and parses the output schema.
func (r *Repo) LoadSchema() (*schema.Node, error) {
	data, err := os.ReadFile(filepath.Clean(r.schemaPath))
	if err != nil {
		if r.fallback && errors.Is(err, fs.ErrNotExist) {
			r.logger.Warn("schema file not found, using built-in schema", zap.String("path", r.schemaPath))
			return FallbackSchema(), nil
		}
		return nil, fmt.Errorf("read schema %s: %w", r.schemaPath, err)
	}
	doc, err := decodeDocument(data, isYAML(r.schemaPath))
	if err != nil {
		return nil, domain.NewSchemaError(nil, fmt.Sprintf("decode %s: %v", r.schemaPath, err))
	}
	return schema.Parse(doc)
}

// DecodeExamples decodes a corpus document. Duplicate IDs are rejected.
func DecodeExamples(data []byte, asYAML bool) ([]example.Example, error) {
	var dtos []exampleDTO
	if asYAML {
		if err := yaml.Unmarshal(data, &dtos); err != nil {
			return nil, err
		}
	} else {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&dtos); err != nil {
			return nil, err
		}
	}

	seen := make(map[string]bool, len(dtos))
	out := make([]example.Example, 0, len(dtos))
	for i, d := range dtos {
		ex, err := d.toDomain()
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if seen[ex.ID()] {
			return nil, fmt.Errorf("entry %d: example %q: %w", i, ex.ID(), domain.ErrAlreadyExists)
		}
		seen[ex.ID()] = true
		out = append(out, ex)
	}
	return out, nil
}

// FallbackExamples returns the built-in single-example corpus.
func FallbackExamples() []example.Example {
	out := make([]example.Example, 0, len(fallbackExamples))
	for _, d := range fallbackExamples {
		ex, err := d.toDomain()
		if err != nil {
			panic(err)
		}
		out = append(out, ex)
	}
	return out
}

// FallbackSchema returns the built-in workflow schema.
func FallbackSchema() *schema.Node {
	return schema.MustParse(value.MustFromAny(fallbackSchema))
}

func decodeDocument(data []byte, asYAML bool) (value.Value, error) {
	if !asYAML {
		return value.ParseJSON(data)
	}
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return value.Value{}, err
	}
	return value.FromAny(raw)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
