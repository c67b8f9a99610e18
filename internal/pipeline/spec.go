package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/modkit/internal/pass"
)

// Spec selects the passes of a pipeline and its modes. Passes run in the
// order listed.
type Spec struct {
	// Name labels the pipeline in logs and the run journal.
	Name string `yaml:"name,omitempty"`

	// Passes lists pass names in execution order. Names may repeat.
	Passes []string `yaml:"passes"`

	// Analyze runs analyses through printers and skips transforms.
	Analyze bool `yaml:"analyze,omitempty"`

	// PrintAfterEach dumps the module after every selected pass.
	PrintAfterEach bool `yaml:"print_after_each,omitempty"`

	// Verify appends the verifier stage. Defaults to true in pipeline files.
	Verify bool `yaml:"verify"`
}

// LoadSpec reads a YAML pipeline file.
func LoadSpec(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline file: %w", err)
	}
	return ParseSpec(data)
}

// ParseSpec decodes a YAML pipeline. Unknown fields are rejected.
func ParseSpec(data []byte) (*Spec, error) {
	spec := Spec{Verify: true}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse pipeline YAML: %w", err)
	}
	for i, name := range spec.Passes {
		if name == "" {
			return nil, fmt.Errorf("invalid pipeline: passes[%d] is empty", i)
		}
	}
	return &spec, nil
}

// CheckNames returns an error naming every pass in s that r does not know.
func (s *Spec) CheckNames(r *pass.Registry) error {
	var errs []error
	for _, name := range s.Passes {
		if _, ok := r.Lookup(name); !ok {
			errs = append(errs, fmt.Errorf("unknown pass %q", name))
		}
	}
	return errors.Join(errs...)
}
